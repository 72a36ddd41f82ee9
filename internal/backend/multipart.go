package backend

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"github.com/erazemk/findit/internal/imaging"
)

// Form is a multipart/form-data body under construction.
type Form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

// NewForm returns an empty multipart form.
func NewForm() *Form {
	f := &Form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

// Field adds a text field. Empty values are still sent.
func (f *Form) Field(name, value string) *Form {
	if f.err == nil {
		f.err = f.w.WriteField(name, value)
	}
	return f
}

// Image adds one file part under field name.
func (f *Form) Image(name string, up *imaging.Upload) *Form {
	if f.err != nil || up == nil {
		return f
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, name, up.Filename))
	h.Set("Content-Type", up.MIME)
	part, err := f.w.CreatePart(h)
	if err != nil {
		f.err = err
		return f
	}
	_, f.err = part.Write(up.Data)
	return f
}

// Images adds every upload under the same field name.
func (f *Form) Images(name string, ups []*imaging.Upload) *Form {
	for _, up := range ups {
		f.Image(name, up)
	}
	return f
}

// call finalizes the form into a POST call.
func (f *Form) call(name, path string) (call, error) {
	if f.err != nil {
		return call{}, fmt.Errorf("building %s form: %w", name, f.err)
	}
	if err := f.w.Close(); err != nil {
		return call{}, fmt.Errorf("closing %s form: %w", name, err)
	}
	return call{
		name:        name,
		method:      "POST",
		path:        path,
		body:        bytes.NewReader(f.buf.Bytes()),
		contentType: f.w.FormDataContentType(),
	}, nil
}
