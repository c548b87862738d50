package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/tahcohcat/rpglife/internal/auth"
	"github.com/tahcohcat/rpglife/internal/clock"
	"github.com/tahcohcat/rpglife/internal/logger"
	"github.com/tahcohcat/rpglife/internal/services"
)

const timezoneHeader = "X-Timezone"

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// requestError is a client mistake detected before reaching a service.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &requestError{status: http.StatusBadRequest, msg: msg}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// HH:MM, as accepted for a character's daily reset
	_ = v.RegisterValidation("timeofday", func(fl validator.FieldLevel) bool {
		_, err := clock.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.New().Named("api").WithError(err).Warn("failed to encode response")
	}
}

// writeError maps service and validation errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		reqErr *requestError
		verrs  validator.ValidationErrors
	)
	switch {
	case errors.As(err, &reqErr):
		writeJSON(w, reqErr.status, errorResponse{Error: reqErr.msg})
	case errors.As(err, &verrs):
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrEmptyPool):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrLootboxLocked),
		errors.Is(err, services.ErrInvalidUnits),
		errors.Is(err, services.ErrInvalidXP),
		errors.Is(err, services.ErrInvalidChance),
		errors.Is(err, services.ErrInvalidResetTime),
		errors.Is(err, services.ErrInvalidOwner):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrUsernameTaken):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		logger.New().Named("api").WithError(err).Error("request failed",
			requestIDField(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// decode reads a JSON body into dst and validates it. An empty body leaves
// dst as is when allowEmpty is set.
func (h *Handler) decode(r *http.Request, dst interface{}, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return badRequest("invalid request body")
		}
	}
	return h.validate.Struct(dst)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id")
	}
	return id, nil
}

// timezone is the caller's IANA zone from the X-Timezone header.
func (h *Handler) timezone(r *http.Request) string {
	if tz := strings.TrimSpace(r.Header.Get(timezoneHeader)); tz != "" {
		return tz
	}
	return h.defaultTZ
}

func currentUser(r *http.Request) int64 {
	id, _ := auth.UserID(r.Context())
	return id
}
