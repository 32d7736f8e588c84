package list

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"animelist-service/internal/ranking"
)

// listInfo is the slice of a lists row the access checks need.
type listInfo struct {
	OwnerID     string
	IsPublic    bool
	ListType    string
	CustomOrder bool
}

var errListNotFound = errors.New("list not found")

// validID guards URL parameters before they reach a uuid column; a
// malformed id is indistinguishable from a missing row to the caller.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

func (s *Server) getListInfo(ctx context.Context, listID string) (listInfo, error) {
	var info listInfo
	if !validID(listID) {
		return info, errListNotFound
	}
	err := s.db.QueryRow(ctx, `
		SELECT owner_id, is_public, list_type, custom_order
		FROM lists
		WHERE id = $1
	`, listID).Scan(&info.OwnerID, &info.IsPublic, &info.ListType, &info.CustomOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return info, errListNotFound
	}
	return info, err
}

// canView implements the visibility rule: public lists are visible to
// everyone, private lists only to their owner.
func (info listInfo) canView(userID string) bool {
	return info.IsPublic || (userID != "" && userID == info.OwnerID)
}

// viewerWeights loads the viewer's preference weights. A missing profile
// row is not an error; the weights then default to 1.0 each.
func (s *Server) viewerWeights(ctx context.Context, userID string) (ranking.Weights, error) {
	w := ranking.EvenWeights()
	err := s.db.QueryRow(ctx, `
		SELECT pref_weight_technical, pref_weight_storytelling,
		       pref_weight_enjoyment, pref_weight_xfactor
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&w.Technical, &w.Storytelling, &w.Enjoyment, &w.XFactor)
	if errors.Is(err, pgx.ErrNoRows) {
		return ranking.EvenWeights(), nil
	}
	if err != nil {
		return w, err
	}
	return w, nil
}

// execer is satisfied by both DB and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// touchList bumps the list's updated_at after an entry change. Best effort.
func touchList(ctx context.Context, db execer, listID string) {
	if _, err := db.Exec(ctx, `UPDATE lists SET updated_at = now() WHERE id = $1`, listID); err != nil {
		log.Printf("animelist-service: touch list: %v", err)
	}
}

func (s *Server) publishEvent(ctx context.Context, event map[string]any) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("animelist-service: marshal event: %v", err)
		return
	}
	if err := s.rdb.Publish(ctx, "broadcast", string(data)).Err(); err != nil {
		log.Printf("animelist-service: publish event: %v", err)
	}
}
