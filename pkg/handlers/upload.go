package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/greenthumb-app/greenthumb/pkg/apperrors"
	"github.com/greenthumb-app/greenthumb/pkg/llm"
)

// imageField is the multipart form field carrying the photo.
const imageField = "image"

var errImageTooLarge = errors.New("image too large")

// readImage reads the uploaded photo from a multipart request. The declared
// part type is trusted only when it is an image type; generic types such as
// application/octet-stream are replaced by the sniffed type.
func readImage(w http.ResponseWriter, r *http.Request, maxBytes int64) (llm.Image, error) {
	if r.ContentLength > maxBytes {
		return llm.Image{}, fmt.Errorf("%w: %w: limit is %d bytes", apperrors.ErrValidation, errImageTooLarge, maxBytes)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return llm.Image{}, fmt.Errorf("%w: %w: limit is %d bytes", apperrors.ErrValidation, errImageTooLarge, maxBytes)
		}
		return llm.Image{}, fmt.Errorf("%w: expected a multipart form with an %q file", apperrors.ErrValidation, imageField)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(imageField)
	if err != nil {
		return llm.Image{}, fmt.Errorf("%w: missing %q file", apperrors.ErrValidation, imageField)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return llm.Image{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return llm.Image{}, fmt.Errorf("%w: image is empty", apperrors.ErrValidation)
	}

	mimeType := imageMIMEType(header.Header.Get("Content-Type"), data)
	if mimeType == "" {
		return llm.Image{}, fmt.Errorf("%w: upload is not an image", apperrors.ErrValidation)
	}
	return llm.Image{MIMEType: mimeType, Data: data}, nil
}

// imageMIMEType returns the image type for an upload, or "" when it is not one.
func imageMIMEType(declared string, data []byte) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return ""
}
