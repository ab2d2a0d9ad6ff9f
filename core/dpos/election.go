package dpos

import (
	"database/sql"
	"sort"
)

// UpdateElectedProducers computes the proposed producer schedule: the top
// ScheduleSize active producers by vote total, reordered by producer name so
// the emitted schedule is independent of vote order. A result smaller than
// the previously accepted schedule is discarded rather than shrinking
// consensus membership. Invoked by the node's time-gated election trigger,
// never concurrently with a vote transition.
func (g *Governance) UpdateElectedProducers(currentTime uint64) error {
	return g.withTx(func(tx *sql.Tx) error {
		gs, err := getGovernanceState(tx)
		if err != nil {
			return err
		}
		gs.LastProducerScheduleUpdate = currentTime

		top, err := topProducers(tx, ScheduleSize)
		if err != nil {
			return err
		}

		if len(top) < int(gs.LastProducerScheduleSize) {
			return putGovernanceState(tx, gs)
		}

		// Sort by producer name.
		sort.Slice(top, func(i, j int) bool {
			return top[i].Owner < top[j].Owner
		})

		schedule := make([]ScheduleEntry, len(top))
		for i, prod := range top {
			schedule[i] = ScheduleEntry{
				Owner:       prod.Owner,
				ProducerKey: prod.ProducerKey,
			}
		}

		if g.proposer != nil && g.proposer.ProposeSchedule(schedule) {
			gs.LastProducerScheduleSize = uint16(len(top))
			g.log.Printf("Proposed producer schedule size=%d\n", len(top))
		}

		return putGovernanceState(tx, gs)
	})
}
