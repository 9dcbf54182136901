package postgres

// SQL for the statistics sink. Decimal values travel as text and are cast by Postgres.

const (
	// queryUpsertMeta registers or refreshes a series and returns its id.
	queryUpsertMeta = `
		INSERT INTO statistics_meta (
			statistic_id, source, unit_of_measurement, unit_class, has_mean, has_sum, name
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		ON CONFLICT (statistic_id) DO UPDATE SET
			source              = EXCLUDED.source,
			unit_of_measurement = EXCLUDED.unit_of_measurement,
			unit_class          = EXCLUDED.unit_class,
			has_mean            = EXCLUDED.has_mean,
			has_sum             = EXCLUDED.has_sum,
			name                = EXCLUDED.name
		RETURNING id
	`

	// queryUpsertStatistic replaces the row of a bucket. Real data for a bucket
	// clears the anchor flag of the row it replaces.
	queryUpsertStatistic = `
		INSERT INTO statistics (metadata_id, start_ts, state, sum, anchor, created_ts)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6)
		ON CONFLICT (metadata_id, start_ts) DO UPDATE SET
			state      = EXCLUDED.state,
			sum        = EXCLUDED.sum,
			anchor     = EXCLUDED.anchor,
			created_ts = EXCLUDED.created_ts
	`

	// queryLastStatistic returns the newest imported row; anchors are skipped.
	queryLastStatistic = `
		SELECT s.start_ts, s.state::text, s.sum::text, s.anchor
		FROM statistics s
		JOIN statistics_meta m ON m.id = s.metadata_id
		WHERE m.statistic_id = $1
		  AND NOT s.anchor
		ORDER BY s.start_ts DESC
		LIMIT 1
	`

	queryLastStatisticBefore = `
		SELECT s.start_ts, s.state::text, s.sum::text, s.anchor
		FROM statistics s
		JOIN statistics_meta m ON m.id = s.metadata_id
		WHERE m.statistic_id = $1
		  AND s.start_ts < $2
		  AND NOT s.anchor
		ORDER BY s.start_ts DESC
		LIMIT 1
	`

	// queryStatisticsPage pages rows in start order; a NULL $2 reads from the beginning.
	queryStatisticsPage = `
		SELECT s.start_ts, s.state::text, s.sum::text, s.anchor
		FROM statistics s
		JOIN statistics_meta m ON m.id = s.metadata_id
		WHERE m.statistic_id = $1
		  AND ($2::timestamptz IS NULL OR s.start_ts >= $2::timestamptz)
		ORDER BY s.start_ts ASC
		OFFSET $3
		LIMIT $4
	`

	queryInsertState = `
		INSERT INTO states (metadata_id, state, last_updated_ts)
		SELECT id, $2::numeric, $3
		FROM statistics_meta
		WHERE statistic_id = $1
	`

	queryPurgeStates = `
		DELETE FROM states
		USING statistics_meta m
		WHERE states.metadata_id = m.id
		  AND m.statistic_id = $1
		  AND states.last_updated_ts < $2
	`

	queryDeleteShortTerm = `
		DELETE FROM statistics_short_term
		USING statistics_meta m
		WHERE statistics_short_term.metadata_id = m.id
		  AND m.statistic_id = $1
	`

	queryDeleteStatistics = `
		DELETE FROM statistics
		USING statistics_meta m
		WHERE statistics.metadata_id = m.id
		  AND m.statistic_id = $1
	`

	// queryCurrentPrice picks the newest price in effect at $2.
	queryCurrentPrice = `
		SELECT price_per_unit::text, currency
		FROM meter_prices
		WHERE meter_id = $1
		  AND effective_from <= $2
		ORDER BY effective_from DESC
		LIMIT 1
	`
)
