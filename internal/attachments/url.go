package attachments

import (
	"strings"

	"docattach/internal/models"
)

// uriReserved are the bytes encodeURI leaves as they are, besides alphanumerics.
const uriReserved = ";,/?:@&=+$-_.!~*'()#"

// ResolveURL returns the url an attachment is opened from. Without a file_url it
// is derived from file_name. The result is percent-encoded the way a browser's
// encodeURI does it, with '#' additionally escaped so it is not read as a fragment.
func ResolveURL(attachment models.Attachment) string {
	fileURL := attachment.FileURL
	if fileURL == "" {
		if strings.HasPrefix(attachment.FileName, "files/") {
			fileURL = "/" + attachment.FileName
		} else {
			fileURL = models.PublicFilesPrefix + attachment.FileName
		}
	}
	return strings.ReplaceAll(encodeURI(fileURL), "#", "%23")
}

func encodeURI(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isURIUnescaped(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isURIUnescaped(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	default:
		return strings.IndexByte(uriReserved, c) >= 0
	}
}
