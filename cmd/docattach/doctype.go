package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"docattach/internal/api"
	"docattach/internal/config"
	"docattach/internal/models"
)

type doctypeDefinition struct {
	Name           string `yaml:"name"`
	MaxAttachments int    `yaml:"max_attachments"`
}

type doctypeFile struct {
	Doctypes []doctypeDefinition `yaml:"doctypes"`
}

func newDoctypeCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{Use: "doctype", Short: "Manage doctypes and their attachment limits"}
	cmd.AddCommand(
		newDoctypeAddCmd(cfg, jsonOutput),
		newDoctypeListCmd(cfg, jsonOutput),
		newDoctypeImportCmd(cfg, jsonOutput),
	)
	return cmd
}

func newDoctypeAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var maxAttachments int

	cmd := &cobra.Command{
		Use:   "add <doctype>",
		Short: "Create or update a doctype",
		Args:  requireExactlyArgs(1, "doctype is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxAttachments < 0 {
				return fmt.Errorf("--max-attachments must be >= 0")
			}
			return withClient(cfg, func(client *api.Client) error {
				dt, err := client.PutDoctype(cmd.Context(), args[0], api.DoctypeRequest{MaxAttachments: maxAttachments})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(dt)
				}
				return writePlain("doctype %s (max attachments: %s)\n", dt.Name, formatMaxAttachments(dt.MaxAttachments))
			})
		},
	}

	cmd.Flags().IntVar(&maxAttachments, "max-attachments", 0, "attachment limit per document (0 = unlimited)")
	return cmd
}

func newDoctypeListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List doctypes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				doctypes, err := client.ListDoctypes(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(doctypes)
				}
				if len(doctypes) == 0 {
					return writePlain("no doctypes\n")
				}
				for _, dt := range doctypes {
					if err := writePlain("%s\t%s\n", dt.Name, formatMaxAttachments(dt.MaxAttachments)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newDoctypeImportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Create or update doctypes from a YAML file (- for stdin)",
		Args:  requireExactlyArgs(1, "file is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			defs, err := parseDoctypeFile(r)
			if err != nil {
				return err
			}

			return withClient(cfg, func(client *api.Client) error {
				saved := make([]models.DocType, 0, len(defs))
				for _, def := range defs {
					dt, err := client.PutDoctype(cmd.Context(), def.Name, api.DoctypeRequest{MaxAttachments: def.MaxAttachments})
					if err != nil {
						return fmt.Errorf("doctype %s: %w", def.Name, err)
					}
					saved = append(saved, dt)
				}
				if *jsonOutput {
					return writeJSON(saved)
				}
				return writePlain("imported %d doctypes\n", len(saved))
			})
		},
	}
}

// parseDoctypeFile reads a doctype definition file and checks every entry
// before anything is sent to the server.
func parseDoctypeFile(r io.Reader) ([]doctypeDefinition, error) {
	var file doctypeFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("doctype file is empty")
		}
		return nil, fmt.Errorf("parse doctype file: %w", err)
	}
	if len(file.Doctypes) == 0 {
		return nil, fmt.Errorf("doctype file defines no doctypes")
	}

	seen := make(map[string]struct{}, len(file.Doctypes))
	for i := range file.Doctypes {
		def := &file.Doctypes[i]
		def.Name = strings.TrimSpace(def.Name)
		if !models.IsValidDoctypeName(def.Name) {
			return nil, fmt.Errorf("doctypes[%d]: invalid name %q", i, def.Name)
		}
		if def.MaxAttachments < 0 {
			return nil, fmt.Errorf("doctypes[%d]: max_attachments must be >= 0", i)
		}
		if _, ok := seen[def.Name]; ok {
			return nil, fmt.Errorf("doctypes[%d]: duplicate doctype %q", i, def.Name)
		}
		seen[def.Name] = struct{}{}
	}
	return file.Doctypes, nil
}
