package echo

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	apierrors "github.com/wolliz-dev/wolliz-backend/errors"
	"github.com/wolliz-dev/wolliz-backend/salesforce"
)

// PropertyAPI relays property CRUD calls to the external platform. Upstream
// errors pass through with their original status and body; local failures
// use the regular error shape.
type PropertyAPI struct {
	client *salesforce.PropertyClient
}

// NewPropertyAPI initializes the property proxy API.
func NewPropertyAPI(client *salesforce.PropertyClient) *PropertyAPI {
	return &PropertyAPI{client: client}
}

// GetProperty relays a property read.
func (pa *PropertyAPI) GetProperty(c echo.Context) error {
	data, err := pa.client.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return pa.relayError(c, err, "Failed to fetch property")
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

// CreateProperty relays a property creation.
func (pa *PropertyAPI) CreateProperty(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewValidationError("invalid request body"))
	}

	data, err := pa.client.Create(c.Request().Context(), payload)
	if err != nil {
		return pa.relayError(c, err, "Failed to create property")
	}
	return c.Blob(http.StatusCreated, echo.MIMEApplicationJSON, data)
}

// DeleteProperty relays a property deletion. The upstream body comes back as
// raw text.
func (pa *PropertyAPI) DeleteProperty(c echo.Context) error {
	data, err := pa.client.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return pa.relayError(c, err, "Failed to delete property")
	}
	return c.Blob(http.StatusOK, echo.MIMETextPlain, data)
}

// relayError distinguishes the three proxy failure classes: no session yet
// (503, no upstream call happened), an upstream-reported error (verbatim
// passthrough), and transport failure (500, detail logged only).
func (pa *PropertyAPI) relayError(c echo.Context, err error, logMsg string) error {
	if errors.Is(err, salesforce.ErrNotAuthenticated) {
		return c.JSON(http.StatusServiceUnavailable, apierrors.NewServiceUnavailable("salesforce not authenticated"))
	}

	var upstream *salesforce.UpstreamError
	if errors.As(err, &upstream) {
		contentType := upstream.ContentType
		if contentType == "" {
			contentType = echo.MIMEApplicationJSON
		}
		return c.Blob(upstream.StatusCode, contentType, upstream.Body)
	}

	log.Error().Err(err).Msg(logMsg)
	return c.JSON(http.StatusInternalServerError, apierrors.NewInternalError())
}
