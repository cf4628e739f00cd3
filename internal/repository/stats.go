package repository

import (
	"fmt"
	"time"

	"github.com/debemdeboas/postdesk/internal/kv"
	"github.com/debemdeboas/postdesk/internal/model"
)

// StatsRepository counts successful deliveries.
type StatsRepository struct {
	ks  *kv.Keyspace
	now clock
}

func NewStatsRepository(ks *kv.Keyspace) *StatsRepository {
	return &StatsRepository{ks: ks, now: time.Now}
}

// normalize gives every known type an explicit counter.
func normalize(s model.StatsRecord) model.StatsRecord {
	if s.PerType == nil {
		s.PerType = make(map[model.ContentType]int)
	}
	for _, t := range model.AllContentTypes() {
		if _, ok := s.PerType[t]; !ok {
			s.PerType[t] = 0
		}
	}
	return s
}

// Record adds one post of type t.
func (r *StatsRepository) Record(t model.ContentType) (model.StatsRecord, error) {
	if !t.Valid() {
		return model.StatsRecord{}, fmt.Errorf("recording stats: unknown content type %q", t)
	}

	rec, err := kv.Update(r.ks, KeyStats, model.NewStatsRecord(r.now()), func(s model.StatsRecord) (model.StatsRecord, error) {
		s = normalize(s)
		s.TotalPosts++
		s.PerType[t]++
		s.LastUpdated = r.now()
		return s, nil
	})
	if err != nil {
		return model.StatsRecord{}, fmt.Errorf("recording stats: %w", err)
	}

	repoLogger.Debug().Str("type", string(t)).Int("total", rec.TotalPosts).Msg("Post recorded")
	return rec.Clone(), nil
}

func (r *StatsRepository) Snapshot() model.StatsRecord {
	return normalize(kv.Load(r.ks, KeyStats, model.NewStatsRecord(r.now()))).Clone()
}
