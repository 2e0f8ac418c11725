package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/service"
)

// maxImportSize caps import uploads at 10MB.
const maxImportSize = 10 << 20

// TransferHandler serves the export and import routes.
type TransferHandler struct {
	transfer *service.TransferService
	logger   *slog.Logger
}

func NewTransferHandler(transfer *service.TransferService, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{transfer: transfer, logger: logger}
}

// idsQuery parses the optional ?ids=1,2,3 filter. Empty means "everything".
func idsQuery(r *http.Request) ([]int64, error) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, apperror.ValidationFailed("ids", "ids must be a comma-separated list of integers")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// HandleExport serves GET /api/export — the portable JSON document, offered
// as a download.
func (h *TransferHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ids, err := idsQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	doc, err := h.transfer.Export(r.Context(), ids)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=snippets-%s.json", time.Now().Format("2006-01-02")))
	writeJSON(w, http.StatusOK, doc)
}

// HandleExportMarkdown serves GET /api/export/markdown.
func (h *TransferHandler) HandleExportMarkdown(w http.ResponseWriter, r *http.Request) {
	ids, err := idsQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	md, err := h.transfer.ExportMarkdown(r.Context(), ids)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=snippets-%s.md", time.Now().Format("2006-01-02")))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, md)
}

// importRequest is the JSON import body: the document nested next to its
// options. A bare export document (no wrapper) is accepted too, with default
// options. The document stays raw bytes here so a malformed field inside it
// (a numeric title, say) reaches Validate instead of failing a typed decode
// and being misreported as a missing snippets array. Option fields are
// pointers so "absent" and "false" stay distinguishable — SkipDuplicates
// defaults to true.
type importRequest struct {
	Document json.RawMessage `json:"document"`
	Options  *importOptions  `json:"options"`
}

type importOptions struct {
	OverwriteExisting *bool `json:"overwrite_existing"`
	SkipDuplicates    *bool `json:"skip_duplicates"`
	PreserveIDs       *bool `json:"preserve_ids"`
}

func (o *importOptions) resolve() model.ImportOptions {
	opts := model.DefaultImportOptions()
	if o == nil {
		return opts
	}
	if o.OverwriteExisting != nil {
		opts.OverwriteExisting = *o.OverwriteExisting
	}
	if o.SkipDuplicates != nil {
		opts.SkipDuplicates = *o.SkipDuplicates
	}
	if o.PreserveIDs != nil {
		opts.PreserveIDs = *o.PreserveIDs
	}
	return opts
}

// readImportBody extracts the raw document bytes and options from either a
// multipart upload (file field "file", options as form values) or a JSON body.
func (h *TransferHandler) readImportBody(w http.ResponseWriter, r *http.Request) ([]byte, model.ImportOptions, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImportSize); err != nil {
			return nil, model.ImportOptions{}, apperror.ValidationFailed("file", "invalid multipart upload")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, model.ImportOptions{}, apperror.ValidationFailed("file", `multipart upload must carry a "file" field`)
		}
		defer file.Close()

		raw, err := io.ReadAll(file)
		if err != nil {
			return nil, model.ImportOptions{}, fmt.Errorf("reading upload: %w", err)
		}

		opts := model.DefaultImportOptions()
		if v := r.FormValue("overwrite_existing"); v != "" {
			opts.OverwriteExisting = v == "true"
		}
		if v := r.FormValue("skip_duplicates"); v != "" {
			opts.SkipDuplicates = v == "true"
		}
		if v := r.FormValue("preserve_ids"); v != "" {
			opts.PreserveIDs = v == "true"
		}
		return raw, opts, nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, model.ImportOptions{}, apperror.ValidationFailed("body", "could not read request body")
	}

	var req importRequest
	if err := json.Unmarshal(raw, &req); err == nil && len(req.Document) > 0 && string(req.Document) != "null" {
		return req.Document, req.Options.resolve(), nil
	}

	// Bare export document with default options.
	return raw, model.DefaultImportOptions(), nil
}

// HandleImport serves POST /api/import. The response is the full run ledger;
// per-record failures are part of a 200 response, only a malformed document
// or a transaction fault produces an error status.
func (h *TransferHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	raw, opts, err := h.readImportBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	var doc model.ExportDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		writeError(w, apperror.ValidationFailed("body", "import document is not well-formed JSON"))
		return
	}

	summary, err := h.transfer.Import(r.Context(), &doc, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleValidate serves POST /api/import/validate — the structural report,
// with no writes. The report itself says valid or not; the status is 200
// either way.
func (h *TransferHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	raw, _, err := h.readImportBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.transfer.Validate(raw))
}
