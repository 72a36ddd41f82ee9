package web

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/erazemk/findit/internal/backend"
	"github.com/erazemk/findit/internal/imaging"
)

// errorPage is the data for error.html.
type errorPage struct {
	PageData
	Status  int
	Message string
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	pd := page(r, http.StatusText(status))
	s.Templates.RenderStatus(w, status, "error.html", &errorPage{PageData: pd, Status: status, Message: msg})
}

// redirectWith redirects to target with a notice or alert message attached.
func redirectWith(w http.ResponseWriter, r *http.Request, target, key, msg string) {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	if msg != "" {
		q := u.Query()
		q.Set(key, msg)
		u.RawQuery = q.Encode()
	}
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

func notice(w http.ResponseWriter, r *http.Request, target, msg string) {
	redirectWith(w, r, target, "notice", msg)
}

func alert(w http.ResponseWriter, r *http.Request, target, msg string) {
	redirectWith(w, r, target, "alert", msg)
}

// backendFailed handles a failed backend call made on behalf of a signed-in
// user. An expired backend session signs the user out; anything else is
// logged and reported on target as an alert.
func (s *Server) backendFailed(w http.ResponseWriter, r *http.Request, err error, target, fallback string) {
	if backend.IsUnauthorized(err) {
		s.endSession(w, r, sessionClaims(r.Context()))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	slog.Error("backend call failed", "path", r.URL.Path, "user", userID(r), "error", err)
	alert(w, r, target, backend.Message(err, fallback))
}

func userID(r *http.Request) string {
	if u := CurrentUser(r.Context()); u != nil {
		return u.ID
	}
	return ""
}

// errTooLarge is reported when the upload exceeds the configured limit.
var errTooLarge = errors.New("upload too large")

// parseForm parses a multipart (or urlencoded) form within the upload limit.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUpload)
	ct := r.Header.Get("Content-Type")
	var err error
	if strings.HasPrefix(ct, "multipart/form-data") {
		err = r.ParseMultipartForm(s.MaxUpload)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return errTooLarge
		}
		return fmt.Errorf("parsing form: %w", err)
	}
	return nil
}

// formImages reads and normalizes the images uploaded under field. Empty
// file inputs are skipped.
func formImages(r *http.Request, field string, max int) ([]*imaging.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var headers []*multipart.FileHeader
	for _, fh := range r.MultipartForm.File[field] {
		if fh.Filename == "" || fh.Size == 0 {
			continue
		}
		headers = append(headers, fh)
	}
	if len(headers) > max {
		return nil, fmt.Errorf("you can upload at most %d images", max)
	}

	uploads := make([]*imaging.Upload, 0, len(headers))
	for _, fh := range headers {
		up, err := readImage(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, up)
	}
	return uploads, nil
}

func readImage(fh *multipart.FileHeader) (*imaging.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", fh.Filename, err)
	}
	defer f.Close()

	up, err := imaging.Process(fh.Filename, f)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedFormat) {
			return nil, fmt.Errorf("%s is not a JPEG or PNG image", fh.Filename)
		}
		return nil, fmt.Errorf("processing %s: %w", fh.Filename, err)
	}
	return up, nil
}

// uploadError turns a form or image error into a message for the user.
func uploadError(err error) string {
	if errors.Is(err, errTooLarge) {
		return "The upload is too large."
	}
	msg := err.Error()
	if msg == "" {
		return "Invalid upload."
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
