package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relohub/platform/internal/api/middleware"
	"github.com/relohub/platform/internal/models"
	"github.com/relohub/platform/internal/storage"
	"github.com/relohub/platform/internal/store"
)

// DocumentsHandler manages per-client document uploads. Metadata goes to
// the relational store; bytes go to the blob store.
type DocumentsHandler struct {
	store         store.Store
	blobs         storage.BlobStore
	maxUploadSize int64
	logger        *slog.Logger
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(st store.Store, blobs storage.BlobStore, maxUploadSize int64, logger *slog.Logger) *DocumentsHandler {
	return &DocumentsHandler{
		store:         st,
		blobs:         blobs,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// Upload accepts a multipart form with a "file" part and stores it for
// the client.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	clientID := chi.URLParam(r, "clientID")

	if _, err := fetchAuthorizedClient(r.Context(), h.store, caller, clientID); err != nil {
		writeAccessError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, ErrCodeInvalidRequest,
				fmt.Sprintf("Upload exceeds the %d byte limit", h.maxUploadSize))
			return
		}
		WriteBadRequest(w, "Request must be a multipart form with a file part")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteBadRequest(w, "Missing file part")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		WriteBadRequest(w, "Uploaded file must have a filename")
		return
	}

	blobKey := uuid.New().String()
	if err := h.blobs.Put(r.Context(), blobKey, file); err != nil {
		h.logger.Error("failed to store blob", "error", err, "client_id", clientID)
		WriteInternalError(w, "Failed to store document")
		return
	}

	doc := &models.Document{
		ClientID:    clientID,
		UploadedBy:  caller.UserID,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		SizeBytes:   header.Size,
		BlobKey:     blobKey,
	}
	if err := h.store.Documents().Create(r.Context(), doc); err != nil {
		h.logger.Error("failed to record document", "error", err, "client_id", clientID)
		// Orphaned blob is harmless; clean it up on a best-effort basis.
		if delErr := h.blobs.Delete(r.Context(), blobKey); delErr != nil {
			h.logger.Warn("failed to clean up blob", "error", delErr, "blob_key", blobKey)
		}
		WriteInternalError(w, "Failed to store document")
		return
	}

	WriteJSON(w, http.StatusCreated, doc)
}

// List returns metadata for the client's documents.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	clientID := chi.URLParam(r, "clientID")

	if _, err := fetchAuthorizedClient(r.Context(), h.store, caller, clientID); err != nil {
		writeAccessError(w, err)
		return
	}

	docs, err := h.store.Documents().ListByClient(r.Context(), clientID)
	if err != nil {
		h.logger.Error("failed to list documents", "error", err)
		WriteInternalError(w, "Failed to list documents")
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// Download streams a document's contents back to the caller.
func (h *DocumentsHandler) Download(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	documentID := chi.URLParam(r, "documentID")

	doc, err := h.store.Documents().Get(r.Context(), documentID)
	if err != nil {
		h.logger.Error("failed to fetch document", "error", err)
		WriteInternalError(w, "Failed to fetch document")
		return
	}
	if doc == nil {
		WriteNotFound(w, "Document not found")
		return
	}

	if _, err := fetchAuthorizedClient(r.Context(), h.store, caller, doc.ClientID); err != nil {
		writeAccessError(w, err)
		return
	}

	blob, err := h.blobs.Get(r.Context(), doc.BlobKey)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			h.logger.Error("document metadata has no blob", "document_id", doc.ID, "blob_key", doc.BlobKey)
			WriteNotFound(w, "Document contents are missing")
			return
		}
		h.logger.Error("failed to open blob", "error", err, "document_id", doc.ID)
		WriteInternalError(w, "Failed to fetch document")
		return
	}
	defer blob.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, blob); err != nil {
		h.logger.Warn("document stream interrupted", "error", err, "document_id", doc.ID)
	}
}
