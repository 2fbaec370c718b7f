package reconcile

import (
	"time"

	"github.com/roach88/dropfarm/internal/match"
	"github.com/roach88/dropfarm/internal/model"
)

// Result is the reconciled view of one snapshot applied to prior state.
type Result struct {
	Games []model.Campaign

	// Selected is the selected campaign refreshed from Games, or the prior
	// selection unchanged when no game matched it.
	Selected *model.Campaign

	Drops     []model.Drop
	Completed []model.Drop
	Pending   []model.Drop
	Current   *model.Drop

	// ZeroMatch is set when the snapshot held no drop for the selection.
	ZeroMatch bool
	// Preserved is set when the previous split was kept because of a zero
	// match during active farming.
	Preserved bool
	// Relaxed counts drops admitted only by game-name score.
	Relaxed int
}

// Reconcile applies snap to prev. prev is not modified.
func Reconcile(prev model.FarmingState, snap model.Snapshot, now time.Time) Result {
	games := MergeGames(prev.Available, snap.Games, now)
	games = ApplyAllowList(games, snap.AllowList)

	res := Result{Games: games, Selected: prev.Selected}
	if prev.Selected == nil {
		res.Drops, res.Completed, res.Pending = []model.Drop{}, []model.Drop{}, []model.Drop{}
		return res
	}

	sel := *prev.Selected
	if g, ok := match.MatchGame(sel, games); ok {
		sel = mergeGame(g, sel)
		res.Selected = &sel
	}

	var strict, relaxed []model.Drop
	for _, d := range snap.Drops {
		switch match.DropMatchesGame(d, sel) {
		case match.Strict:
			strict = append(strict, d)
		case match.Relaxed:
			relaxed = append(relaxed, d)
		}
	}

	incoming := strict
	if len(incoming) == 0 && len(relaxed) > 0 {
		incoming = relaxed
		res.Relaxed = len(relaxed)
	}

	if len(incoming) == 0 {
		res.ZeroMatch = true
		if prev.Running && len(prev.Drops) > 0 {
			res.Preserved = true
			res.Drops = cloneDrops(prev.Drops)
			res.Completed, res.Pending, res.Current = Split(res.Drops)
			return res
		}
	}

	res.Drops = mergeRelevant(dedupe(incoming), prev.Drops)
	res.Completed, res.Pending, res.Current = Split(res.Drops)
	return res
}

// dedupe folds records of the same logical drop within one snapshot, such
// as a campaign record and an inventory record of the same reward.
func dedupe(in []model.Drop) []model.Drop {
	out := make([]model.Drop, 0, len(in))
	for _, d := range in {
		d = d.Normalize()
		if i := indexOf(d, out); i >= 0 {
			out[i] = MergeDrop(d, out[i])
			continue
		}
		out = append(out, d)
	}
	return out
}

func mergeRelevant(incoming, previous []model.Drop) []model.Drop {
	used := make([]bool, len(previous))
	out := make([]model.Drop, 0, len(incoming)+len(previous))

	for _, d := range incoming {
		if i := indexOfUnused(d, previous, used); i >= 0 {
			used[i] = true
			d = MergeDrop(d, previous[i])
		}
		out = append(out, d)
	}

	for i, old := range previous {
		if used[i] {
			continue
		}
		if old.Claimed || old.Claimable || old.Progress > 0 {
			out = append(out, old.Normalize())
		}
	}
	return out
}

func indexOf(d model.Drop, in []model.Drop) int {
	return indexOfUnused(d, in, nil)
}

// indexOfUnused finds d in in by identity key first, then by match score.
func indexOfUnused(d model.Drop, in []model.Drop, used []bool) int {
	key := d.Key()
	for i, c := range in {
		if used != nil && used[i] {
			continue
		}
		if c.Key() == key {
			return i
		}
	}

	var free []model.Drop
	var idx []int
	for i, c := range in {
		if used != nil && used[i] {
			continue
		}
		// Distinct remote ids are distinct drops however alike they look.
		if d.ID != "" && c.ID != "" && d.ID != c.ID {
			continue
		}
		free = append(free, c)
		idx = append(idx, i)
	}
	best, ok := match.MatchDrop(d, free)
	if !ok {
		return -1
	}
	for j, c := range free {
		if c.Key() == best.Key() {
			return idx[j]
		}
	}
	return -1
}

func cloneDrops(in []model.Drop) []model.Drop {
	st := model.FarmingState{Drops: in}
	return st.Clone().Drops
}
