package v1handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"osint/internal/export"
	"osint/pkg/domain"
	"osint/pkg/serrors"
)

// DefaultLimit is the page size used when the request gives none.
const DefaultLimit = 20

// CreateScanRequest is the JSON body of POST /scans.
type CreateScanRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Scan is the API representation of a scan.
type Scan struct {
	ID        string            `json:"id"`
	Target    domain.Target     `json:"target"`
	Status    domain.ScanStatus `json:"status"`
	Results   []domain.Envelope `json:"results"`
	Attempts  int               `json:"attempts"`
	Error     string            `json:"error,omitempty"`
	Started   *time.Time        `json:"started,omitempty"`
	Finished  *time.Time        `json:"finished,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt *time.Time        `json:"updatedAt,omitempty"`
}

// ScanList is a page of scans.
type ScanList struct {
	Items      []Scan  `json:"items"`
	NextCursor *string `json:"nextCursor"`
}

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}

// DomainScanToV1 maps a stored scan to its API representation. Uploaded image
// paths are reduced to file names.
func DomainScanToV1(in *domain.Scan) Scan {
	target := in.Target
	if target.Kind == domain.TargetImages {
		names := make([]string, len(target.Values))
		for i, v := range target.Values {
			names[i] = filepath.Base(v)
		}
		target.Values = names
	}
	results := in.Envelopes
	if results == nil {
		results = []domain.Envelope{}
	}

	return Scan{
		ID:        in.ID.String(),
		Target:    target,
		Status:    in.Status,
		Results:   results,
		Attempts:  int(in.Attempts), //nolint: gosec
		Error:     in.LastError,
		Started:   optTime(in.StartedAt),
		Finished:  optTime(in.FinishedAt),
		CreatedAt: in.CreatedAt,
		UpdatedAt: optTime(in.UpdatedAt),
	}
}

func scanID(c *gin.Context) (domain.ScanID, error) {
	id, err := domain.ParseScanID(c.Param("id"))
	if err != nil {
		return domain.ScanID{}, serrors.Wrap(serrors.ErrBadRequest, err, "invalid scan id")
	}

	return id, nil
}

// CreateScan schedules a new scan. Domain, username, phone and ip targets are
// posted as JSON; images are posted as multipart "files".
func (h *Handler) CreateScan(c *gin.Context) {
	var (
		target domain.Target
		err    error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		target, err = h.uploadTarget(c)
	} else {
		target, err = jsonTarget(c)
	}
	if err != nil {
		h.abort(c, err)

		return
	}

	s, err := h.deps.Scanner.Enqueue(c.Request.Context(), target)
	if err != nil {
		h.abort(c, err)

		return
	}

	c.JSON(http.StatusAccepted, DomainScanToV1(s))
}

func jsonTarget(c *gin.Context) (domain.Target, error) {
	var req CreateScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return domain.Target{}, serrors.Wrap(serrors.ErrBadRequest, err, "invalid request body")
	}
	if domain.TargetKind(strings.ToLower(strings.TrimSpace(req.Type))) == domain.TargetImages {
		return domain.Target{}, serrors.With(serrors.ErrBadRequest, "images must be uploaded as multipart files")
	}

	return domain.Target{Kind: domain.TargetKind(req.Type), Value: req.Value}, nil
}

// uploadTarget stores every uploaded file under UploadDir and returns an
// images target over the stored paths.
func (h *Handler) uploadTarget(c *gin.Context) (domain.Target, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.deps.MaxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		return domain.Target{}, serrors.Wrap(serrors.ErrBadRequest, err, "invalid multipart body")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return domain.Target{}, serrors.With(serrors.ErrBadRequest, "images target needs at least one file")
	}

	dir, err := filepath.Abs(h.deps.UploadDir)
	if err != nil {
		return domain.Target{}, fmt.Errorf("could not resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return domain.Target{}, fmt.Errorf("could not create upload dir: %w", err)
	}

	target := domain.Target{Kind: domain.TargetImages}
	for _, fh := range files {
		id, err := gonanoid.New()
		if err != nil {
			return domain.Target{}, fmt.Errorf("could not generate upload name: %w", err)
		}
		dst := filepath.Join(dir, id+"_"+filepath.Base(fh.Filename))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			return domain.Target{}, fmt.Errorf("could not store upload: %w", err)
		}
		target.Values = append(target.Values, dst)
	}

	return target, nil
}

// DeleteScan deletes a scan by ID.
func (h *Handler) DeleteScan(c *gin.Context) {
	id, err := scanID(c)
	if err != nil {
		h.abort(c, err)

		return
	}
	if err := h.deps.Scanner.Delete(c.Request.Context(), id); err != nil {
		h.abort(c, err)

		return
	}

	c.Status(http.StatusNoContent)
}

// GetScan returns a scan and its envelopes.
func (h *Handler) GetScan(c *gin.Context) {
	id, err := scanID(c)
	if err != nil {
		h.abort(c, err)

		return
	}
	s, err := h.deps.Scanner.Result(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)

		return
	}

	c.JSON(http.StatusOK, DomainScanToV1(s))
}

// ListScans returns a paginated list of scans.
func (h *Handler) ListScans(c *gin.Context) {
	limit := DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.abort(c, serrors.With(serrors.ErrBadRequest, "limit must be a positive integer"))

			return
		}
		limit = n
	}

	scans, nextCursor, err := h.deps.Scanner.Scans(c.Request.Context(),
		domain.ScanStatus(strings.ToUpper(c.Query("status"))),
		c.Query("cursor"),
		uint(limit)) //nolint: gosec
	if err != nil {
		h.abort(c, err)

		return
	}

	items := make([]Scan, 0, len(scans))
	for i := range scans {
		items = append(items, DomainScanToV1(&scans[i]))
	}
	out := ScanList{Items: items}
	if nextCursor != "" {
		out.NextCursor = &nextCursor
	}

	c.JSON(http.StatusOK, out)
}

// GetCorrelation returns the correlation report of a completed scan.
func (h *Handler) GetCorrelation(c *gin.Context) {
	id, err := scanID(c)
	if err != nil {
		h.abort(c, err)

		return
	}
	res, err := h.deps.Scanner.Correlate(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)

		return
	}

	c.JSON(http.StatusOK, res)
}

// GetGraph returns the visualization data of a completed scan.
func (h *Handler) GetGraph(c *gin.Context) {
	id, err := scanID(c)
	if err != nil {
		h.abort(c, err)

		return
	}
	res, err := h.deps.Scanner.Correlate(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)

		return
	}

	c.JSON(http.StatusOK, res.Visualization)
}

// GetExport streams the entities or relations table of a completed scan as
// CSV.
func (h *Handler) GetExport(c *gin.Context) {
	id, err := scanID(c)
	if err != nil {
		h.abort(c, err)

		return
	}
	part := c.Param("part")
	if part != "entities" && part != "relations" {
		h.abort(c, serrors.With(serrors.ErrBadRequest, "unknown export %q, expected entities or relations", part))

		return
	}
	res, err := h.deps.Scanner.Correlate(c.Request.Context(), id)
	if err != nil {
		h.abort(c, err)

		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="scan_%s_%s.csv"`, id, part))
	c.Status(http.StatusOK)
	if part == "entities" {
		err = export.WriteEntities(c.Writer, res.Entities)
	} else {
		err = export.WriteRelations(c.Writer, res.Relationships)
	}
	if err != nil {
		_ = c.Error(err)
	}
}
