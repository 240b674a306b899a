package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ankurclub/clever-video-summarizer/internal/auth"
	"github.com/ankurclub/clever-video-summarizer/internal/domain"
)

// maxJSONBody bounds JSON request bodies. Translation and summary input is
// the largest legitimate payload.
const maxJSONBody = 2 << 20

// decodeJSON reads a JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return domain.Errorf(domain.ETOOLARGE, op, "Request body is too large")
		case errors.Is(err, io.EOF):
			return domain.Invalid(op, "Request body is empty")
		default:
			return domain.Wrap(err, domain.EINVALID, op, "Request body is not valid JSON")
		}
	}
	return nil
}

// requireIdentity returns the caller's identity, writing a 401 when the
// identity middleware did not run.
func requireIdentity(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (domain.Identity, bool) {
	id, ok := auth.GetIdentityFromRequest(r)
	if !ok {
		UnauthorizedResponse(w, r, logger, "Unable to identify the caller")
	}
	return id, ok
}
