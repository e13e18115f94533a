// Package feedback records the up/down vote a user casts on one assistant
// reply (FeedbackService).
package feedback

import (
	"context"
	"errors"
	"fmt"

	"github.com/autofi/ai-engine/apierr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Vote is the tri-valued feedback state stored against a chat message.
type Vote string

const (
	NotVoted  Vote = "NOTVOTED"
	Upvoted   Vote = "UPVOTED"
	Downvoted Vote = "DOWNVOTED"
)

// nextVote applies the toggle rule: casting the same vote that is already
// recorded clears it, any other vote replaces it outright.
func nextVote(current, vote Vote) Vote {
	if current == vote {
		return NotVoted
	}
	return vote
}

// Service toggles the feedback vote on a stored chat message.
type Service struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// New constructs a Service.
func New(pool *pgxpool.Pool, logger zerolog.Logger) *Service {
	return &Service{pool: pool, logger: logger.With().Str("component", "feedback_service").Logger()}
}

// Submit applies vote to messageID: casting the same vote a second time
// clears it back to NotVoted, matching the toggle semantics of the vote
// button in the assistant UI.
func (s *Service) Submit(ctx context.Context, messageID int64, vote Vote) (Vote, error) {
	s.logger.Info().Int64("message_id", messageID).Str("vote", string(vote)).Msg("submit_feedback called")

	var current Vote
	err := s.pool.QueryRow(ctx, `SELECT "Feedback" FROM "ChatMessages" WHERE "Id" = $1`, messageID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apierr.NotFound(fmt.Sprintf("message %d not found", messageID))
		}
		return "", apierr.Upstream(err)
	}

	next := nextVote(current, vote)

	if _, err := s.pool.Exec(ctx, `UPDATE "ChatMessages" SET "Feedback" = $1 WHERE "Id" = $2`, next, messageID); err != nil {
		return "", apierr.Upstream(err)
	}

	s.logger.Info().Int64("message_id", messageID).Str("feedback", string(next)).Msg("feedback updated")
	return next, nil
}
