package library

import (
	"context"
	"net/http"

	"github.com/mrlokans/readshelf/internal/backend"
	"github.com/mrlokans/readshelf/internal/config"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// Outcome tells how far a page write could be confirmed.
type Outcome string

const (
	OutcomeConfirmed  Outcome = "confirmed"  // Read back the written page
	OutcomeRetried    Outcome = "retried"    // Read back a different page and wrote again
	OutcomeUnverified Outcome = "unverified" // The read back failed
)

// ProgressResult is the result of UpdateCurrentPage.
type ProgressResult struct {
	BookID  string  `json:"book_id"`
	Page    int     `json:"page"`
	Outcome Outcome `json:"outcome"`
}

// UpdateCurrentPage writes the current page, reads it back and, when the
// stored value differs, writes it once more.
//
// In best-effort mode only the first write can fail the call: a failed read
// back reports OutcomeUnverified and the second write is not checked. Strict
// mode fails with ErrUnconfirmed unless a read back matches. Neither mode
// protects against another client writing between the read and the retry.
func (s *Service) UpdateCurrentPage(ctx context.Context, bookID string, page int) (*ProgressResult, error) {
	if bookID == "" || page < 0 {
		return nil, errors.Wrap(ErrInvalidInput, "book id and a non-negative page are required")
	}
	token, _, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).Root(logger.Data{"book_id": bookID, "page": page})
	strict := s.mode == config.ReconcileStrict
	result := &ProgressResult{BookID: bookID, Page: page}

	if err := s.writePage(ctx, token, bookID, page); err != nil {
		return nil, errors.Wrap(err, "update current page")
	}

	stored, err := s.readPage(ctx, token, bookID)
	if err != nil {
		if strict {
			return nil, errors.Wrapf(ErrUnconfirmed, "read back failed: %v", err)
		}
		log.Warn("current page written but not verified", logger.Data{"error": err.Error()})
		result.Outcome = OutcomeUnverified
		return result, nil
	}
	if stored == page {
		result.Outcome = OutcomeConfirmed
		return result, nil
	}

	log.Warn("current page mismatch after write, retrying", logger.Data{"stored": stored})
	result.Outcome = OutcomeRetried

	if err := s.writePage(ctx, token, bookID, page); err != nil {
		if strict {
			return nil, errors.Wrap(err, "retry current page")
		}
		log.Warn("current page retry failed", logger.Data{"error": err.Error()})
		return result, nil
	}
	if !strict {
		return result, nil
	}

	stored, err = s.readPage(ctx, token, bookID)
	if err != nil {
		return nil, errors.Wrapf(ErrUnconfirmed, "read back after retry failed: %v", err)
	}
	if stored != page {
		return nil, errors.Wrapf(ErrUnconfirmed, "stored page is %d after retry, want %d", stored, page)
	}
	return result, nil
}

func (s *Service) writePage(ctx context.Context, token, bookID string, page int) error {
	_, err := s.patchBook(ctx, token, bookID, map[string]any{"current_page": page}, backend.PreferMinimal, backend.MatchAny)
	return err
}

func (s *Service) readPage(ctx context.Context, token, bookID string) (int, error) {
	var rows []struct {
		CurrentPage int `json:"current_page"`
	}
	err := s.backend.DoJSON(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   backend.RestPath(tableBooks),
		Query:  backend.NewQuery().Eq("id", bookID).Select("current_page").Values(),
		Token:  token,
	}, &rows)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errors.Wrapf(ErrNotFound, "book %s", bookID)
	}
	return rows[0].CurrentPage, nil
}
