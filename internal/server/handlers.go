package server

import (
	"io"
	"mime/multipart"
	nethttp "net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/ipdata/ipdata/internal/cloud/storage"
	"github.com/ipdata/ipdata/internal/cloud/upload"
	"github.com/ipdata/ipdata/internal/constants"
	"github.com/ipdata/ipdata/internal/models"
	"github.com/ipdata/ipdata/internal/version"
)

func (s *Server) handleHealth(w nethttp.ResponseWriter, r *nethttp.Request) {
	ok(w, map[string]string{"status": "ok", "version": version.Version})
}

type credentialsView struct {
	Source      models.CredentialSource   `json:"source"`
	Credentials models.StorageCredentials `json:"credentials"`
	Region      string                    `json:"effectiveRegion"`
	Complete    bool                      `json:"complete"`
	Missing     []string                  `json:"missing,omitempty"`
	Environment []string                  `json:"environment"`
}

func (s *Server) handleGetCredentials(w nethttp.ResponseWriter, r *nethttp.Request) {
	creds, source := s.creds.ResolveWithSource()

	var env []string
	for _, v := range s.creds.Environment().Required() {
		env = append(env, v.Describe())
	}

	ok(w, credentialsView{
		Source:      source,
		Credentials: creds.Redacted(),
		Region:      creds.EffectiveRegion(),
		Complete:    creds.IsComplete(),
		Missing:     creds.MissingFields(),
		Environment: env,
	})
}

func (s *Server) handleSaveCredentials(w nethttp.ResponseWriter, r *nethttp.Request) {
	var creds models.StorageCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		badRequest(w, "invalid credentials payload: "+err.Error())
		return
	}
	if !creds.IsComplete() {
		writeError(w, storage.CredentialsMissing("SaveCredentials", creds.MissingFields()))
		return
	}

	if err := s.creds.Save(creds); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save credentials")
		writeError(w, err)
		return
	}

	saved, source := s.creds.ResolveWithSource()
	ok(w, map[string]interface{}{
		"source":      source,
		"credentials": saved.Redacted(),
	})
}

// handleTestConnection probes the credentials in the body, or the resolved
// set when the body is empty.
func (s *Server) handleTestConnection(w nethttp.ResponseWriter, r *nethttp.Request) {
	var creds models.StorageCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil && err != io.EOF {
		badRequest(w, "invalid credentials payload: "+err.Error())
		return
	}
	if creds == (models.StorageCredentials{}) {
		creds, _ = s.creds.ResolveWithSource()
	}

	report, err := s.conn.TestConnection(r.Context(), creds)
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, report)
}

type jobView struct {
	FileName string  `json:"fileName"`
	Key      string  `json:"key"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	URL      string  `json:"url,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type failureView struct {
	FileName string `json:"fileName"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

type sessionView struct {
	SessionID string        `json:"sessionId"`
	Target    string        `json:"target"`
	Succeeded bool          `json:"succeeded"`
	URLs      []string      `json:"urls"`
	Failures  []failureView `json:"failures"`
	Jobs      []jobView     `json:"jobs"`
}

func newSessionView(res *upload.SessionResult) sessionView {
	v := sessionView{
		SessionID: res.SessionID.String(),
		Target:    res.Target.String(),
		Succeeded: res.Succeeded(),
		URLs:      res.SucceededURLs,
		Failures:  make([]failureView, 0, len(res.Failures)),
		Jobs:      make([]jobView, 0, len(res.Jobs)),
	}
	for _, f := range res.Failures {
		v.Failures = append(v.Failures, failureView{
			FileName: f.FileName,
			Code:     string(storage.CodeOf(f.Err)),
			Message:  f.Err.Error(),
		})
	}
	for _, j := range res.Jobs {
		jv := jobView{FileName: j.FileName, Key: j.Key, Status: string(j.Status), Progress: j.Progress, URL: j.URL}
		if j.Err != nil {
			jv.Error = j.Err.Error()
		}
		v.Jobs = append(v.Jobs, jv)
	}
	return v
}

// handleUpload accepts multipart "files" parts and runs one session.
// Query: target=direct|presigned|alternate, provider=<name>, dest=<prefix>.
func (s *Server) handleUpload(w nethttp.ResponseWriter, r *nethttp.Request) {
	target, err := s.requestTarget(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := r.ParseMultipartForm(constants.MaxUploadMemory); err != nil {
		badRequest(w, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	files := make([]upload.FileRef, 0, len(headers))
	for _, fh := range headers {
		files = append(files, fileRefFromHeader(fh))
	}

	dest := r.URL.Query().Get("dest")
	if dest == "" && s.cfg != nil && s.cfg.Settings != nil {
		dest = s.cfg.Settings.Upload.DestinationPath
	}

	res, err := s.uploads.UploadAll(r.Context(), files, target, dest, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, newSessionView(res))
}

func (s *Server) requestTarget(r *nethttp.Request) (upload.Target, error) {
	q := r.URL.Query()
	name := q.Get("target")
	if name == "" {
		name = "presigned"
		if s.cfg != nil && s.cfg.Settings != nil && s.cfg.Settings.Upload.Target != "" {
			name = s.cfg.Settings.Upload.Target
		}
	}
	if name == "alternate" {
		name = "alternate:" + q.Get("provider")
	}
	return upload.ParseTarget(name)
}

func fileRefFromHeader(fh *multipart.FileHeader) upload.FileRef {
	return upload.FileRef{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadSeekCloser, error) {
			return fh.Open()
		},
	}
}

type registerRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MediaURL    string   `json:"mediaUrl"`
	FileURLs    []string `json:"fileUrls"`
	Tags        []string `json:"tags"`
	License     string   `json:"license"`
}

func (s *Server) handleRegister(w nethttp.ResponseWriter, r *nethttp.Request) {
	if s.registry == nil {
		fail(w, nethttp.StatusServiceUnavailable, ErrorBody{Message: "registry is not configured; set " + constants.EnvRegistryURL})
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid registration payload: "+err.Error())
		return
	}
	if req.MediaURL == "" && len(req.FileURLs) > 0 {
		req.MediaURL = req.FileURLs[0]
	}
	if strings.TrimSpace(req.Name) == "" || req.MediaURL == "" {
		badRequest(w, "name and mediaUrl are required")
		return
	}

	id, err := s.registry.Register(r.Context(), models.IPAsset{
		Name:        req.Name,
		Description: req.Description,
		MediaURL:    req.MediaURL,
		FileURLs:    req.FileURLs,
		Tags:        req.Tags,
		License:     req.License,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]string{"ipAssetId": id})
}
