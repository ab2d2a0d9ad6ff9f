package dpos

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Row-level access to the voter and producer registries. All reads and writes
// go through the action's *sql.Tx so a failed transition rolls back wholly.

func getVoter(tx *sql.Tx, owner AccountName) (*Voter, error) {
	row := tx.QueryRow(
		"SELECT owner, staked, proxy, producers, proxied_vote_weight, last_vote_weight, is_proxy, activated FROM voters WHERE owner = ?",
		owner,
	)

	var v Voter
	var producersJSON string
	err := row.Scan(&v.Owner, &v.Staked, &v.Proxy, &producersJSON, &v.ProxiedVoteWeight, &v.LastVoteWeight, &v.IsProxy, &v.Activated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal([]byte(producersJSON), &v.Producers)
	if err != nil {
		return nil, fmt.Errorf("error decoding producers list for voter %s: %s", owner, err)
	}
	if v.Producers == nil {
		v.Producers = []AccountName{}
	}

	return &v, nil
}

func putVoter(tx *sql.Tx, v *Voter) error {
	producersJSON, err := json.Marshal(v.Producers)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		`INSERT INTO voters (owner, staked, proxy, producers, proxied_vote_weight, last_vote_weight, is_proxy, activated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(owner) DO UPDATE SET
			staked = excluded.staked,
			proxy = excluded.proxy,
			producers = excluded.producers,
			proxied_vote_weight = excluded.proxied_vote_weight,
			last_vote_weight = excluded.last_vote_weight,
			is_proxy = excluded.is_proxy,
			activated = excluded.activated`,
		v.Owner, v.Staked, v.Proxy, string(producersJSON), v.ProxiedVoteWeight, v.LastVoteWeight, v.IsProxy, v.Activated,
	)
	return err
}

func getProducer(tx *sql.Tx, owner AccountName) (*Producer, error) {
	row := tx.QueryRow(
		"SELECT owner, producer_key, url, location, total_votes, is_active FROM producers WHERE owner = ?",
		owner,
	)

	var p Producer
	err := row.Scan(&p.Owner, &p.ProducerKey, &p.URL, &p.Location, &p.TotalVotes, &p.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func putProducer(tx *sql.Tx, p *Producer) error {
	_, err := tx.Exec(
		`INSERT INTO producers (owner, producer_key, url, location, total_votes, is_active)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(owner) DO UPDATE SET
			producer_key = excluded.producer_key,
			url = excluded.url,
			location = excluded.location,
			total_votes = excluded.total_votes,
			is_active = excluded.is_active`,
		p.Owner, p.ProducerKey, p.URL, p.Location, p.TotalVotes, p.IsActive,
	)
	return err
}

// countProducers counts every registered producer, active or not.
func countProducers(tx *sql.Tx) (int, error) {
	row := tx.QueryRow("SELECT count(*) FROM producers")
	count := 0
	err := row.Scan(&count)
	return count, err
}

func countActiveProducers(tx *sql.Tx) (int, error) {
	row := tx.QueryRow("SELECT count(*) FROM producers WHERE is_active = 1")
	count := 0
	err := row.Scan(&count)
	return count, err
}

// topProducers scans the vote-total index in descending order and returns up
// to limit active producers with a positive vote total.
func topProducers(tx *sql.Tx, limit int) ([]Producer, error) {
	rows, err := tx.Query(
		`SELECT owner, producer_key, url, location, total_votes, is_active FROM producers
		 WHERE is_active = 1 AND total_votes > 0
		 ORDER BY total_votes DESC, owner ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	producers := []Producer{}
	for rows.Next() {
		var p Producer
		err := rows.Scan(&p.Owner, &p.ProducerKey, &p.URL, &p.Location, &p.TotalVotes, &p.IsActive)
		if err != nil {
			return nil, err
		}
		producers = append(producers, p)
	}

	return producers, rows.Err()
}

func getGovernanceState(tx *sql.Tx) (*GovernanceState, error) {
	row := tx.QueryRow(
		`SELECT total_activated_stake, total_producer_vote_weight, thresh_activated_stake_time,
			last_producer_schedule_update, last_producer_schedule_size
		 FROM governance WHERE id = 0`,
	)

	var gs GovernanceState
	err := row.Scan(
		&gs.TotalActivatedStake, &gs.TotalProducerVoteWeight, &gs.ThreshActivatedStakeTime,
		&gs.LastProducerScheduleUpdate, &gs.LastProducerScheduleSize,
	)
	if err != nil {
		return nil, err
	}

	return &gs, nil
}

func putGovernanceState(tx *sql.Tx, gs *GovernanceState) error {
	_, err := tx.Exec(
		`UPDATE governance SET
			total_activated_stake = ?,
			total_producer_vote_weight = ?,
			thresh_activated_stake_time = ?,
			last_producer_schedule_update = ?,
			last_producer_schedule_size = ?
		 WHERE id = 0`,
		gs.TotalActivatedStake, gs.TotalProducerVoteWeight, gs.ThreshActivatedStakeTime,
		gs.LastProducerScheduleUpdate, gs.LastProducerScheduleSize,
	)
	return err
}
