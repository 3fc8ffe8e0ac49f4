package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docattach/internal/api"
	"docattach/internal/config"
)

func newDocCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{Use: "doc", Short: "Manage documents"}
	cmd.AddCommand(
		newDocNewCmd(cfg, jsonOutput),
		newDocShowCmd(cfg, jsonOutput),
		newDocSetCmd(cfg, jsonOutput),
	)
	return cmd
}

func newDocNewCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		name   string
		fields []string
	)

	cmd := &cobra.Command{
		Use:   "new <doctype>",
		Short: "Save a new document",
		Args:  requireExactlyArgs(1, "doctype is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseFieldAssignments(fields)
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				doc, err := client.CreateDocument(cmd.Context(), args[0], api.DocumentCreateRequest{Name: name, Fields: values})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(doc)
				}
				return writePlain("created %s %s\n", doc.Doctype, doc.Name)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "document name (generated when empty)")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "field value as key=value (repeatable)")
	return cmd
}

func newDocShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <doctype> <name>",
		Short: "Show one document",
		Args:  requireDocumentArgs(0, "doctype and name are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				doc, err := client.GetDocument(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(doc)
				}
				return writeDocumentDetail(doc)
			})
		},
	}
}

func newDocSetCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "set <doctype> <name> <key=value>...",
		Short: "Set field values on a saved document (empty value clears)",
		Args:  requireAtLeastArgs(3, "doctype, name and at least one key=value are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseFieldAssignments(args[2:])
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				doc, err := client.SetDocumentFields(cmd.Context(), args[0], args[1], values)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(doc)
				}
				return writeDocumentDetail(doc)
			})
		},
	}
}

func parseFieldAssignments(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, item := range raw {
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q (expected key=value)", item)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("field %q given more than once", key)
		}
		out[key] = value
	}
	return out, nil
}
