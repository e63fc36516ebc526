package web

import (
	"fmt"
	"html"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/microcosm-cc/bluemonday"

	"github.com/nirv-ico/onboarding/internal/kyc"
)

const uploadField = "file"

var stripMarkup = bluemonday.StrictPolicy()

// plainText removes any markup from user supplied free text before it is
// forwarded upstream.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripMarkup.Sanitize(s)))
}

func acceptedType(m *mimetype.MIME) bool {
	return m.Is("application/pdf") || strings.HasPrefix(m.String(), "image/")
}

// readDocument loads the multipart file of c. Only images and PDF files up
// to maxBytes are accepted; the type is sniffed from the content, not taken
// from the client.
func readDocument(c *fiber.Ctx, maxBytes int) (*kyc.File, error) {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Choose a file first.")
	}
	tooLarge := fiber.NewError(fiber.StatusRequestEntityTooLarge,
		fmt.Sprintf("File is larger than %s.", humanize.Bytes(uint64(maxBytes))))
	if fh.Size > int64(maxBytes) {
		return nil, tooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, int64(maxBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(content) > maxBytes {
		return nil, tooLarge
	}
	if len(content) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "The selected file is empty.")
	}

	mt := mimetype.Detect(content)
	if !acceptedType(mt) {
		return nil, fiber.NewError(fiber.StatusUnsupportedMediaType, "Only images and PDF files are accepted.")
	}

	name := plainText(filepath.Base(fh.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "document" + mt.Extension()
	}
	return &kyc.File{Name: name, ContentType: mt.String(), Content: content}, nil
}
