// Package issuance resolves the downloadable artifact for an issued case.
package issuance

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"path"
	"time"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/common/metrics"
	"docverify/internal/common/storage"
	"docverify/internal/models"
)

// Source names the tier that produced an artifact.
type Source string

const (
	SourceOriginal    Source = "original"
	SourceRegistry    Source = "registry"
	SourceCertificate Source = "certificate"

	DefaultLinkExpiry = 15 * time.Minute
)

// Reader is the part of the store the resolver needs.
type Reader interface {
	GetCase(ctx context.Context, id string) (*models.Case, error)
	GetIssuedDocument(ctx context.Context, caseID string) (*models.IssuedDocument, error)
	FindRecord(ctx context.Context, citizenID, documentType string) (*models.RegistryRecord, error)
}

type Artifact struct {
	CaseID         string `json:"caseId"`
	IssuedID       string `json:"issuedId,omitempty"`
	VerificationID string `json:"verificationId"`
	Source         Source `json:"source"`
	Filename       string `json:"filename"`
	ContentType    string `json:"contentType"`
	Data           []byte `json:"-"`
}

type Buckets struct {
	Documents string
	Registry  string
	Downloads string
}

type Resolver struct {
	reader  Reader
	blobs   storage.BlobStore
	buckets Buckets
	cert    *CertificateRenderer
	logger  logger.Logger
	now     func() time.Time
}

func NewResolver(reader Reader, blobs storage.BlobStore, buckets Buckets, cert *CertificateRenderer, log logger.Logger) *Resolver {
	if buckets.Documents == "" {
		buckets.Documents = "documents"
	}
	if buckets.Registry == "" {
		buckets.Registry = "registry"
	}
	if buckets.Downloads == "" {
		buckets.Downloads = "downloads"
	}
	return &Resolver{reader: reader, blobs: blobs, buckets: buckets, cert: cert, logger: log, now: time.Now}
}

// Resolve returns the best available artifact for an approved or sent case:
// the retained upload, then the registry source file, then a generated
// certificate. Only the last tier can fail the call.
func (r *Resolver) Resolve(ctx context.Context, caseID string) (*Artifact, error) {
	c, err := r.reader.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !c.Status.IsIssued() {
		return nil, apperrors.NewInvalidStateError("case", c.ID, string(c.Status))
	}

	issued, err := r.reader.GetIssuedDocument(ctx, c.ID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	art := &Artifact{
		CaseID:         c.ID,
		VerificationID: VerificationID(c.ID, c.DocumentType, c.Citizen.IDNumber),
	}
	issuedAt := c.UpdatedAt
	if issued != nil {
		art.IssuedID = issued.ID
		issuedAt = issued.IssuedAt
		if issued.VerificationID != "" {
			art.VerificationID = issued.VerificationID
		}
	}

	log := r.logger.WithFields(map[string]interface{}{"caseId": c.ID})

	if r.fromOriginal(ctx, log, c, art) || r.fromRegistry(ctx, log, c, art) {
		metrics.DownloadsResolved.WithLabelValues(string(art.Source)).Inc()
		return art, nil
	}

	data, err := r.cert.Render(Certificate{
		CitizenName:    c.Citizen.FullName,
		CitizenID:      c.Citizen.IDNumber,
		DocumentType:   c.DocumentType,
		VerificationID: art.VerificationID,
		IssuedAt:       issuedAt,
	})
	if err != nil {
		log.Error("certificate generation failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	art.Source = SourceCertificate
	art.Filename = c.ID + "-certificate.png"
	art.ContentType = "image/png"
	art.Data = data
	metrics.DownloadsResolved.WithLabelValues(string(art.Source)).Inc()
	return art, nil
}

func (r *Resolver) fromOriginal(ctx context.Context, log logger.Logger, c *models.Case, art *Artifact) bool {
	for _, d := range c.Documents {
		if d.StorageKey == "" {
			continue
		}
		data, err := r.blobs.Get(ctx, r.buckets.Documents, d.StorageKey)
		if err != nil {
			log.Warn("retained document unavailable", map[string]interface{}{"key": d.StorageKey, "error": err.Error()})
			continue
		}
		art.Source = SourceOriginal
		art.Filename = d.Filename
		art.ContentType = d.ContentType
		art.Data = data
		return true
	}
	return false
}

func (r *Resolver) fromRegistry(ctx context.Context, log logger.Logger, c *models.Case, art *Artifact) bool {
	rec, err := r.reader.FindRecord(ctx, c.Citizen.IDNumber, c.DocumentType)
	if err != nil {
		log.Warn("registry lookup failed during download", map[string]interface{}{"error": err.Error()})
		return false
	}
	if rec == nil || rec.SourceFileRef == "" {
		return false
	}
	data, err := r.blobs.Get(ctx, r.buckets.Registry, rec.SourceFileRef)
	if err != nil {
		log.Warn("registry source file unavailable", map[string]interface{}{"key": rec.SourceFileRef, "error": err.Error()})
		return false
	}
	art.Source = SourceRegistry
	art.Filename = path.Base(rec.SourceFileRef)
	art.ContentType = contentTypeOf(rec.SourceFileRef, data)
	art.Data = data
	return true
}

func contentTypeOf(name string, data []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

// Download is a published artifact.
type Download struct {
	Artifact  *Artifact `json:"artifact"`
	Locator   string    `json:"locator"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Deliver resolves the artifact, stores it in the downloads bucket under the
// issued document's locator and returns a time-limited link to it.
func (r *Resolver) Deliver(ctx context.Context, caseID string, expiry time.Duration) (*Download, error) {
	art, err := r.Resolve(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if expiry <= 0 {
		expiry = DefaultLinkExpiry
	}
	issuedID := art.IssuedID
	if issuedID == "" {
		issuedID = art.VerificationID
	}
	key := DownloadKey(caseID, issuedID)
	if err := r.blobs.Put(ctx, r.buckets.Downloads, key, art.Data, art.ContentType); err != nil {
		return nil, err
	}
	url, err := r.blobs.PresignGet(ctx, r.buckets.Downloads, key, expiry)
	if err != nil {
		return nil, err
	}
	r.logger.Info("download published", map[string]interface{}{
		"caseId": caseID,
		"source": art.Source,
		"key":    key,
	})
	return &Download{Artifact: art, Locator: key, URL: url, ExpiresAt: r.now().Add(expiry).UTC()}, nil
}
