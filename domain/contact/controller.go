package contact

import (
	"errors"
	"net/http"

	"github.com/akeren/acs-site/config/router"
	"github.com/akeren/acs-site/internal/log"
	"github.com/akeren/acs-site/internal/web/components"
	"github.com/akeren/acs-site/internal/web/content"
	apperrors "github.com/akeren/acs-site/pkg/errors"
	"github.com/akeren/acs-site/pkg/ratelimit"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const idempotencyHeader = "Idempotency-Key"

// NewContactAPIController mounts POST /api/contact.
func NewContactAPIController(service ContactService, limiter ratelimit.RateLimiter) *router.RESTController {
	return router.NewRESTController(
		"ContactAPIController",
		"/api/contact",
		func(rs *router.RouterService, c *router.RESTController) {
			rs.AddPostHandler(c, limiter, "", submitContactHandler(service))
		},
	)
}

// NewContactPageController mounts the contact page and its no-script form fallback.
func NewContactPageController(service ContactService, site *content.Site, limiter ratelimit.RateLimiter) *router.RESTController {
	return router.NewRESTController(
		"ContactPageController",
		"/contact",
		func(rs *router.RouterService, c *router.RESTController) {
			rs.AddPageHandler(c, nil, "", contactPageHandler(site))
			rs.AddFormHandler(c, limiter, "", submitContactFormHandler(service, site))
		},
	)
}

func submitContactHandler(service ContactService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req ContactRequest

		if err := ctx.ShouldBindJSON(&req); err != nil {
			var validationErrs validator.ValidationErrors
			if errors.As(err, &validationErrs) {
				logger.Warn("Contact request is missing required fields", "fields", len(validationErrs))
				return router.RawResult(http.StatusBadRequest, ErrorResponse{Error: MsgMissingFields})
			}

			logger.Error("Failed to bind request", "error", err)
			return router.RawResult(http.StatusBadRequest, ErrorResponse{Error: MsgInvalidBody})
		}

		response, err := service.Submit(ctx.Request.Context(), &req, SubmitOptions{
			IdempotencyKey: ctx.GetHeader(idempotencyHeader),
			CorrelationID:  log.GetOrGenerateCorrelationID(ctx.Request.Context()),
		})
		if err != nil {
			return router.RawResult(apperrors.HTTPStatusCode(err), ErrorResponse{
				Error:   apperrors.GetHumanReadableMessage(err),
				Details: apperrors.Details(err),
			})
		}

		return router.RawResult(http.StatusOK, response)
	}
}

func contactPageHandler(site *content.Site) router.PageHandlerFunction {
	return func(ctx *router.RequestContext) *router.PageResult {
		return router.PageOK(components.ContactPage(site, components.PageConfig{Path: "/contact"}, components.ContactFormView{
			IdempotencyKey: uuid.NewString(),
		}))
	}
}

func submitContactFormHandler(service ContactService, site *content.Site) router.PageHandlerFunction {
	return func(ctx *router.RequestContext) *router.PageResult {
		logger := router.GetLogger(ctx)

		var form ContactForm
		if err := ctx.ShouldBindWith(&form, binding.Form); err != nil {
			logger.Warn("Failed to bind contact form", "error", err)
		}
		if form.IsDemoRequest {
			form.SetDemoRequest(true)
		}

		key := normalizeIdempotencyKey(ctx.PostForm("idempotencyKey"))
		if key == "" {
			key = uuid.NewString()
		}

		view := toFormView(&form, key)
		config := components.PageConfig{Path: "/contact"}

		if ok, fieldErrs := form.Validate(); !ok {
			view.Errors = fieldErrs
			return router.PageWithStatus(http.StatusUnprocessableEntity, components.ContactPage(site, config, view))
		}

		response, err := service.Submit(ctx.Request.Context(), ToContactRequest(&form), SubmitOptions{
			IdempotencyKey: key,
			CorrelationID:  log.GetOrGenerateCorrelationID(ctx.Request.Context()),
		})
		if err != nil {
			view.APIError = apperrors.GetHumanReadableMessage(err)
			return router.PageWithStatus(apperrors.HTTPStatusCode(err), components.ContactPage(site, config, view))
		}

		form.Reset()
		view = toFormView(&form, uuid.NewString())
		view.Submitted = true
		view.MessageID = response.MessageID
		view.Response = response.Response

		return router.PageOK(components.ContactPage(site, config, view))
	}
}

func toFormView(form *ContactForm, idempotencyKey string) components.ContactFormView {
	return components.ContactFormView{
		Name:           form.Name,
		Email:          form.Email,
		Subject:        form.Subject,
		Message:        form.Message,
		IsDemoRequest:  form.IsDemoRequest,
		IdempotencyKey: idempotencyKey,
	}
}
