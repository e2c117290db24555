package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"huanbo/internal/contact/models"
	"huanbo/internal/contact/validation"
	"huanbo/pkg/platform/httputil"
	"huanbo/pkg/requestcontext"
)

const maxMultipartMemory = 1 << 20

const (
	msgValidationFailed = "表单验证失败"
	msgSubmitFailed     = "系统繁忙，请稍后重试或直接联系我们的客服。"
	msgSubmitted        = "感谢您的咨询！我们已收到您的信息，会尽快与您联系。"
	msgBadBody          = "请求格式错误"
	msgFilesNotAllowed  = "不支持上传文件"
)

// Service defines the contact operations the handler needs.
type Service interface {
	Submit(ctx context.Context, form models.ContactForm) (models.Submission, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// Handler serves the contact form and the admin stats endpoint.
type Handler struct {
	logger       *slog.Logger
	contact      Service
	contactLimit func(http.Handler) http.Handler
	requireAdmin func(http.Handler) http.Handler
}

// New creates a contact Handler. contactLimit throttles submissions and
// requireAdmin guards the stats route.
func New(
	contact Service,
	logger *slog.Logger,
	contactLimit func(http.Handler) http.Handler,
	requireAdmin func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:       logger,
		contact:      contact,
		contactLimit: contactLimit,
		requireAdmin: requireAdmin,
	}
}

// Register registers the contact routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.With(h.contactLimit).Post("/api/contact", h.handleSubmit)
	r.With(h.requireAdmin).Get("/api/admin/stats", h.handleStats)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	form, err := decodeForm(r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid contact request body",
			"request_id", requestID,
			"error", err.Error(),
		)
		message := msgBadBody
		if errors.Is(err, errFilesNotAllowed) {
			message = msgFilesNotAllowed
		}
		httputil.WriteJSON(w, http.StatusBadRequest, &ContactResponse{
			Success: false,
			Message: msgValidationFailed,
			Errors:  []validation.FieldError{{Field: "form", Message: message}},
		})
		return
	}

	sub, err := h.contact.Submit(ctx, form)
	if err != nil {
		var fieldErrs validation.ValidationErrors
		if errors.As(err, &fieldErrs) {
			httputil.WriteJSON(w, http.StatusBadRequest, &ContactResponse{
				Success: false,
				Message: msgValidationFailed,
				Errors:  fieldErrs,
			})
			return
		}
		// The service has logged the cause.
		httputil.WriteJSON(w, http.StatusInternalServerError, &ContactResponse{
			Success: false,
			Message: msgSubmitFailed,
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &ContactResponse{
		Success:      true,
		Message:      msgSubmitted,
		SubmissionID: sub.ID,
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.contact.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to compute submission stats",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

var errFilesNotAllowed = errors.New("file uploads are not accepted")

// decodeForm reads the contact fields from a urlencoded, multipart or JSON
// body and trims them.
func decodeForm(r *http.Request) (models.ContactForm, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	var form models.ContactForm
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			return models.ContactForm{}, err
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return models.ContactForm{}, err
		}
		if r.MultipartForm != nil && len(r.MultipartForm.File) > 0 {
			_ = r.MultipartForm.RemoveAll()
			return models.ContactForm{}, errFilesNotAllowed
		}
		form = formFromValues(r.PostFormValue)
	default:
		if err := r.ParseForm(); err != nil {
			return models.ContactForm{}, err
		}
		form = formFromValues(r.PostForm.Get)
	}
	return validation.Normalize(form), nil
}

func formFromValues(get func(string) string) models.ContactForm {
	return models.ContactForm{
		Name:        get("name"),
		Contact:     get("contact"),
		Company:     get("company"),
		ServiceType: get("service-type"),
		CargoType:   get("cargo-type"),
		Destination: get("destination"),
		Message:     get("message"),
	}
}
