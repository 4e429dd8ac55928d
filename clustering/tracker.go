package clustering

import (
	"sort"

	"github.com/kbukum/streamdiar/timeline"
)

// Speaker is one global identity.
type Speaker struct {
	Centroid []float64 `json:"centroid"`
	// Updates counts the embeddings averaged into Centroid.
	Updates  int  `json:"updates"`
	LongTerm bool `json:"long_term"`
	// LowConfidence counts consecutive matches below the refresh threshold.
	LowConfidence int  `json:"low_confidence"`
	Retired       bool `json:"retired"`
}

// Stats summarizes one Update call.
type Stats struct {
	Active    int `json:"active"`
	Matched   int `json:"matched"`
	Refreshed int `json:"refreshed"`
	Created   int `json:"created"`
	Dropped   int `json:"dropped"`
	Retired   int `json:"retired"`
}

// Tracker assigns local speakers to global identities. It is not safe for
// concurrent use.
type Tracker struct {
	cfg      Config
	distance Distance
	speakers []Speaker
	dim      int
}

// NewTracker returns an empty tracker.
func NewTracker(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	distance, err := DistanceFor(cfg.Metric)
	if err != nil {
		return nil, err
	}
	return &Tracker{
		cfg:      cfg,
		distance: distance,
		speakers: make([]Speaker, 0, cfg.MaxSpeakers),
	}, nil
}

// Config returns the tracker thresholds.
func (t *Tracker) Config() Config {
	return t.cfg
}

// Len returns the number of identities created so far.
func (t *Tracker) Len() int {
	return len(t.speakers)
}

// Speakers returns a deep copy of all identities, indexed by global index.
func (t *Tracker) Speakers() []Speaker {
	out := make([]Speaker, len(t.speakers))
	for i, s := range t.speakers {
		out[i] = s
		out[i].Centroid = append([]float64(nil), s.Centroid...)
	}
	return out
}

type candidate struct {
	local, global int
	distance      float64
}

// Update resolves the local speakers of one chunk against the known
// identities and returns the activity projected onto the global axis
// (MaxSpeakers columns), the permutation used, and a summary.
//
// embeddings[l] is the embedding of local speaker l. Missing, degenerate or
// wrongly sized rows make that speaker inactive for this chunk.
func (t *Tracker) Update(activity timeline.Feature, embeddings [][]float64) (timeline.Feature, Permutation, Stats) {
	var stats Stats
	perm := make(Permutation, activity.Dims)
	for l := range perm {
		perm[l] = Unassigned
	}

	active := t.activeSpeakers(activity, embeddings)
	stats.Active = len(active)
	if len(active) == 0 {
		return perm.Apply(activity, t.cfg.MaxSpeakers), perm, stats
	}

	// Every matchable (local, identity) pair, closest first.
	var pairs []candidate
	for _, l := range active {
		for g := range t.speakers {
			if t.speakers[g].Retired {
				continue
			}
			d := t.distance(embeddings[l], t.speakers[g].Centroid)
			if d < t.cfg.DeltaNew {
				pairs = append(pairs, candidate{local: l, global: g, distance: d})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.local != b.local {
			return a.local < b.local
		}
		return a.global < b.global
	})

	taken := make(map[int]bool, len(pairs))
	var matched []candidate
	for _, c := range pairs {
		if perm[c.local] != Unassigned || taken[c.global] {
			continue
		}
		perm[c.local] = c.global
		taken[c.global] = true
		matched = append(matched, c)
	}
	stats.Matched = len(matched)

	for _, l := range active {
		if perm[l] != Unassigned {
			continue
		}
		if len(t.speakers) >= t.cfg.MaxSpeakers {
			stats.Dropped++
			continue
		}
		perm[l] = t.create(embeddings[l])
		stats.Created++
	}

	for _, c := range matched {
		if 1-c.distance >= t.cfg.RhoUpdate {
			t.refresh(c.global, embeddings[c.local])
			stats.Refreshed++
		} else if t.lowConfidence(c.global) {
			stats.Retired++
		}
	}

	return perm.Apply(activity, t.cfg.MaxSpeakers), perm, stats
}

// activeSpeakers returns local indices, ascending, whose mean activity
// exceeds TauActive and whose embedding is usable.
func (t *Tracker) activeSpeakers(activity timeline.Feature, embeddings [][]float64) []int {
	var active []int
	for l, mean := range activity.ColumnMeans() {
		if mean <= t.cfg.TauActive || l >= len(embeddings) {
			continue
		}
		e := embeddings[l]
		if Degenerate(e) || (t.dim != 0 && len(e) != t.dim) {
			continue
		}
		active = append(active, l)
	}
	return active
}

func (t *Tracker) create(e []float64) int {
	if t.dim == 0 {
		t.dim = len(e)
	}
	t.speakers = append(t.speakers, Speaker{
		Centroid: append([]float64(nil), e...),
		Updates:  1,
		LongTerm: 1 >= t.cfg.SurvivalUpdates,
	})
	return len(t.speakers) - 1
}

// refresh folds e into the running mean of identity g.
func (t *Tracker) refresh(g int, e []float64) {
	s := &t.speakers[g]
	n := float64(s.Updates)
	for i := range s.Centroid {
		s.Centroid[i] = (s.Centroid[i]*n + e[i]) / (n + 1)
	}
	s.Updates++
	s.LowConfidence = 0
	if s.Updates >= t.cfg.SurvivalUpdates {
		s.LongTerm = true
	}
}

// lowConfidence records a weak match and reports whether it retired g.
func (t *Tracker) lowConfidence(g int) bool {
	s := &t.speakers[g]
	s.LowConfidence++
	if t.cfg.RetireAfter > 0 && !s.LongTerm && s.LowConfidence >= t.cfg.RetireAfter {
		s.Retired = true
		return true
	}
	return false
}
