package delpro

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pecuschain/farmsync/internal/cloud"
)

// inChunkSize caps the number of bound parameters per IN-clause query.
// SQLite's default parameter limit is 999.
const inChunkSize = 500

// timestampLayout is how DelPro stores datetime columns.
const timestampLayout = "2006-01-02 15:04:05"

// Extractor pulls bounded batches of new rows from an open Store. One
// Extractor serves one sync cycle; the store is reopened each cycle so
// a database swapped out underneath the agent is picked up.
type Extractor struct {
	store         *Store
	batchSize     int
	lookback      time.Duration
	fallbackStart time.Time
	logger        *slog.Logger

	// now is the clock for the initial lookback window. Tests
	// override it.
	now func() time.Time
}

// NewExtractor creates an Extractor reading from store. batchSize caps
// rows per stream. lookback and fallbackStart bound the first-ever
// extraction of date-bearing streams.
func NewExtractor(store *Store, batchSize int, lookback time.Duration, fallbackStart time.Time, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{
		store:         store,
		batchSize:     batchSize,
		lookback:      lookback,
		fallbackStart: fallbackStart,
		logger:        logger,
		now:           time.Now,
	}
}

// Batch is one cycle's extraction result across all streams. Batches
// are transient: built, uploaded, discarded. A failed upload abandons
// the batch; the next cycle re-extracts from the same watermarks.
type Batch struct {
	BasicAnimals      []cloud.BasicAnimal
	Lactations        []cloud.Lactation
	Sessions          []cloud.Session
	VoluntarySessions []cloud.VoluntarySession
	Diversions        []cloud.MilkDiversion
	AnimalHistory     []cloud.AnimalHistory
}

// Empty reports whether no stream produced any rows.
func (b *Batch) Empty() bool {
	return len(b.BasicAnimals) == 0 &&
		len(b.Lactations) == 0 &&
		len(b.Sessions) == 0 &&
		len(b.VoluntarySessions) == 0 &&
		len(b.Diversions) == 0 &&
		len(b.AnimalHistory) == 0
}

// Counts returns per-stream row counts keyed by wire stream name, for
// logging.
func (b *Batch) Counts() map[string]int {
	return map[string]int{
		"basic_animals":                 len(b.BasicAnimals),
		"lactations_summary":            len(b.Lactations),
		"sessions_milk_yield":           len(b.Sessions),
		"voluntary_sessions_milk_yield": len(b.VoluntarySessions),
		"history_milk_diversion_info":   len(b.Diversions),
		"history_animals":               len(b.AnimalHistory),
	}
}

// Payload converts the batch into the upload wire form for one farm.
func (b *Batch) Payload(farmID string) *cloud.Payload {
	return &cloud.Payload{
		FarmID:            farmID,
		BasicAnimals:      b.BasicAnimals,
		LactationsSummary: b.Lactations,
		Sessions:          b.Sessions,
		VoluntarySessions: b.VoluntarySessions,
		DiversionHistory:  b.Diversions,
		AnimalHistory:     b.AnimalHistory,
	}
}

// ExtractAll queries every stream for rows beyond its watermark.
// Streams fail independently: an unreadable table is logged and
// contributes an empty slice, the rest of the batch is still built.
// The returned batch is never nil.
func (e *Extractor) ExtractAll(ctx context.Context, wm *cloud.Watermarks) *Batch {
	b := &Batch{}

	var err error

	if b.BasicAnimals, err = e.extractAnimals(ctx, wm.LastAnimalOID); err != nil {
		e.streamFailed("basic_animals", err)
		b.BasicAnimals = nil
	}

	if b.Lactations, err = e.extractLactations(ctx, wm.LastLactationOID); err != nil {
		e.streamFailed("lactations_summary", err)
		b.Lactations = nil
	}

	if b.Sessions, err = e.extractSessions(ctx, wm.LastSessionOID); err != nil {
		e.streamFailed("sessions_milk_yield", err)
		b.Sessions = nil
	}

	// Voluntary session detail shares the session's OID one-to-one,
	// so it follows the just-extracted sessions rather than its own
	// watermark.
	if len(b.Sessions) > 0 {
		oids := make([]int64, len(b.Sessions))
		for i, s := range b.Sessions {
			oids[i] = s.OID
		}

		if b.VoluntarySessions, err = e.extractVoluntarySessions(ctx, oids); err != nil {
			e.streamFailed("voluntary_sessions_milk_yield", err)
			b.VoluntarySessions = nil
		}
	}

	if b.Diversions, err = e.extractDiversions(ctx, wm.LastDiversionOID); err != nil {
		e.streamFailed("history_milk_diversion_info", err)
		b.Diversions = nil
	}

	// Animal history rows are keyed to the animals extracted this
	// cycle, so cloud-side history stays consistent with the herd
	// register as it lands.
	if len(b.BasicAnimals) > 0 {
		oids := make([]int64, len(b.BasicAnimals))
		for i, a := range b.BasicAnimals {
			oids[i] = a.OID
		}

		if b.AnimalHistory, err = e.extractAnimalHistory(ctx, oids); err != nil {
			e.streamFailed("history_animals", err)
			b.AnimalHistory = nil
		}
	}

	return b
}

func (e *Extractor) streamFailed(stream string, err error) {
	e.logger.Warn("stream extraction failed, continuing with others",
		slog.String("stream", stream),
		slog.String("error", err.Error()),
	)
}

const animalColumns = `OID, SystemEntryTimeStamp, Number, AnimalGuid, Name, Type, Sex, Breed,
	BirthDate, Comment, CommentDate, ExitDate, Modified, PedigreeInfo, CalfSize,
	CalfHealthStatus, CalfUsage, "Group", TransponderID, TransponderType, EarTagLeft,
	EarTagRight, BirthWeight, IsTwin, BirthEvent, ToBeCulled, LatestHistoryIndex,
	OptimisticLockField, GCRecord, ObjectType, ManualRationControl, CurrentFeedTable,
	ConsumptionRate, ActivitySetting, BullID, ExitType, DrinkData, MilkingTestAnimal,
	HairColor, MilkConfig, Imported, Exported, WeightIncreaseDecreaseStatus`

func (e *Extractor) extractAnimals(ctx context.Context, watermark int64) ([]cloud.BasicAnimal, error) {
	query := fmt.Sprintf(`SELECT %s FROM BasicAnimal WHERE OID > ? ORDER BY OID ASC LIMIT ?`, animalColumns)

	rows, err := e.store.db.QueryContext(ctx, query, watermark, e.batchSize)
	if err != nil {
		return nil, fmt.Errorf("querying BasicAnimal: %w", err)
	}
	defer rows.Close()

	var out []cloud.BasicAnimal
	for rows.Next() {
		var a cloud.BasicAnimal
		if err := rows.Scan(
			&a.OID, &a.SystemEntryTimeStamp, &a.Number, &a.AnimalGuid, &a.Name, &a.Type,
			&a.Sex, &a.Breed, &a.BirthDate, &a.Comment, &a.CommentDate, &a.ExitDate,
			&a.Modified, &a.PedigreeInfo, &a.CalfSize, &a.CalfHealthStatus, &a.CalfUsage,
			&a.Group, &a.TransponderID, &a.TransponderType, &a.EarTagLeft, &a.EarTagRight,
			&a.BirthWeight, &a.IsTwin, &a.BirthEvent, &a.ToBeCulled, &a.LatestHistoryIndex,
			&a.OptimisticLockField, &a.GCRecord, &a.ObjectType, &a.ManualRationControl,
			&a.CurrentFeedTable, &a.ConsumptionRate, &a.ActivitySetting, &a.BullID,
			&a.ExitType, &a.DrinkData, &a.MilkingTestAnimal, &a.HairColor, &a.MilkConfig,
			&a.Imported, &a.Exported, &a.WeightIncreaseDecreaseStatus,
		); err != nil {
			return nil, fmt.Errorf("scanning BasicAnimal row: %w", err)
		}

		out = append(out, a)
	}

	return out, rows.Err()
}

const lactationColumns = `OID, SystemEntryTimeStamp, Animal, LactationNumber, StartDate, EndDate,
	PeakYield, DaysToPeak, OptimisticLockField, GCRecord, MatureEquivalent, HistoryTotalYield`

func (e *Extractor) extractLactations(ctx context.Context, watermark int64) ([]cloud.Lactation, error) {
	query := fmt.Sprintf(`SELECT %s FROM AnimalLactationSummary WHERE OID > ? ORDER BY OID ASC LIMIT ?`, lactationColumns)

	rows, err := e.store.db.QueryContext(ctx, query, watermark, e.batchSize)
	if err != nil {
		return nil, fmt.Errorf("querying AnimalLactationSummary: %w", err)
	}
	defer rows.Close()

	var out []cloud.Lactation
	for rows.Next() {
		var l cloud.Lactation
		if err := rows.Scan(
			&l.OID, &l.SystemEntryTimeStamp, &l.Animal, &l.LactationNumber, &l.StartDate,
			&l.EndDate, &l.PeakYield, &l.DaysToPeak, &l.OptimisticLockField, &l.GCRecord,
			&l.MatureEquivalent, &l.HistoryTotalYield,
		); err != nil {
			return nil, fmt.Errorf("scanning AnimalLactationSummary row: %w", err)
		}

		out = append(out, l)
	}

	return out, rows.Err()
}

const sessionColumns = `OID, SessionNo, TotalYield, Destination, User, ExpectedYield, ObjectGuid,
	BeginTime, BasicAnimal, AnimalDaily, EndTime, MilkingDevice, PreviousEndTime,
	AvgConductivity, MaxConductivity, AverageConductivity7Days, RelativeConductivity,
	AverageBlood, MaxBlood, ModifiedSource, SampleTube, SampleTubeRack,
	SampleTubePosition, ObjectType, SystemEntryTimeStamp`

// extractSessions pulls milking sessions past the watermark. A zero
// watermark means the cloud has never seen this farm's sessions; a
// plain OID scan would then select years of backlog, so the first
// extraction is bounded to a recent window, widening to the fixed
// historical start date only when that window is empty.
func (e *Extractor) extractSessions(ctx context.Context, watermark int64) ([]cloud.Session, error) {
	scan := func(rows *sql.Rows) ([]cloud.Session, error) {
		defer rows.Close()

		var out []cloud.Session
		for rows.Next() {
			var s cloud.Session
			if err := rows.Scan(
				&s.OID, &s.SessionNo, &s.TotalYield, &s.Destination, &s.User,
				&s.ExpectedYield, &s.ObjectGuid, &s.BeginTime, &s.BasicAnimal,
				&s.AnimalDaily, &s.EndTime, &s.MilkingDevice, &s.PreviousEndTime,
				&s.AvgConductivity, &s.MaxConductivity, &s.AverageConductivity7Days,
				&s.RelativeConductivity, &s.AverageBlood, &s.MaxBlood, &s.ModifiedSource,
				&s.SampleTube, &s.SampleTubeRack, &s.SampleTubePosition, &s.ObjectType,
				&s.SystemEntryTimeStamp,
			); err != nil {
				return nil, fmt.Errorf("scanning SessionMilkYield row: %w", err)
			}

			out = append(out, s)
		}

		return out, rows.Err()
	}

	if watermark > 0 {
		query := fmt.Sprintf(`SELECT %s FROM SessionMilkYield WHERE OID > ? ORDER BY OID ASC LIMIT ?`, sessionColumns)

		rows, err := e.store.db.QueryContext(ctx, query, watermark, e.batchSize)
		if err != nil {
			return nil, fmt.Errorf("querying SessionMilkYield: %w", err)
		}

		return scan(rows)
	}

	query := fmt.Sprintf(`SELECT %s FROM SessionMilkYield WHERE BeginTime >= ? ORDER BY OID ASC LIMIT ?`, sessionColumns)

	cutoff := e.now().Add(-e.lookback).Format(timestampLayout)

	rows, err := e.store.db.QueryContext(ctx, query, cutoff, e.batchSize)
	if err != nil {
		return nil, fmt.Errorf("querying SessionMilkYield: %w", err)
	}

	out, err := scan(rows)
	if err != nil || len(out) > 0 {
		return out, err
	}

	// Nothing recent. Drain from the historical start date instead so
	// an idle installation still uploads its backlog.
	rows, err = e.store.db.QueryContext(ctx, query, e.fallbackStart.Format(timestampLayout), e.batchSize)
	if err != nil {
		return nil, fmt.Errorf("querying SessionMilkYield: %w", err)
	}

	return scan(rows)
}

const voluntaryColumns = `OID, ExpectedRateLF, ExpectedRateRF, ExpectedRateLR, ExpectedRateRR,
	CarryoverLF, CarryoverRF, CarryoverLR, CarryoverRR, QuarterLFYield, QuarterRFYield,
	QuarterLRYield, QuarterRRYield, MilkType, Kickoff, Incomplete, NotMilkedTeats,
	ConductivityLF, ConductivityRF, ConductivityLR, ConductivityRR, BloodLF, BloodRF,
	BloodLR, BloodRR, PeakFlowLF, PeakFlowRF, PeakFlowLR, PeakFlowRR, MeanFlowLF,
	MeanFlowRF, MeanFlowLR, MeanFlowRR, Occ, Mdi, Performance, CurrentCombinedAmd,
	YieldExpectedLF, YieldExpectedRF, YieldExpectedLR, YieldExpectedRR, UdderCounter,
	UdderCounterFlags, TeatCounterLF, TeatCounterLR, TeatCounterRF, TeatCounterRR,
	TeatCounterFlagsLF, TeatCounterFlagsLR, TeatCounterFlagsRF, TeatCounterFlagsRR,
	CleaningProgramNumber, DiversionReason, AmsSerialData, OccAverage, EnabledTeats,
	OccHealthClass, OccEmr, SelectiveTakeoffApplied, AlternativeAttach,
	SmartPulsationRatio, TeatsFailedCleaning, MilkFlowDuration`

func (e *Extractor) extractVoluntarySessions(ctx context.Context, sessionOIDs []int64) ([]cloud.VoluntarySession, error) {
	var out []cloud.VoluntarySession

	for _, ids := range chunk(sessionOIDs, inChunkSize) {
		query := fmt.Sprintf(`SELECT %s FROM VoluntarySessionMilkYield WHERE OID IN (%s) ORDER BY OID ASC`,
			voluntaryColumns, placeholders(len(ids)))

		rows, err := e.store.db.QueryContext(ctx, query, asArgs(ids)...)
		if err != nil {
			return nil, fmt.Errorf("querying VoluntarySessionMilkYield: %w", err)
		}

		for rows.Next() {
			var v cloud.VoluntarySession
			if err := rows.Scan(
				&v.OID, &v.ExpectedRateLF, &v.ExpectedRateRF, &v.ExpectedRateLR,
				&v.ExpectedRateRR, &v.CarryoverLF, &v.CarryoverRF, &v.CarryoverLR,
				&v.CarryoverRR, &v.QuarterLFYield, &v.QuarterRFYield, &v.QuarterLRYield,
				&v.QuarterRRYield, &v.MilkType, &v.Kickoff, &v.Incomplete, &v.NotMilkedTeats,
				&v.ConductivityLF, &v.ConductivityRF, &v.ConductivityLR, &v.ConductivityRR,
				&v.BloodLF, &v.BloodRF, &v.BloodLR, &v.BloodRR, &v.PeakFlowLF, &v.PeakFlowRF,
				&v.PeakFlowLR, &v.PeakFlowRR, &v.MeanFlowLF, &v.MeanFlowRF, &v.MeanFlowLR,
				&v.MeanFlowRR, &v.Occ, &v.Mdi, &v.Performance, &v.CurrentCombinedAmd,
				&v.YieldExpectedLF, &v.YieldExpectedRF, &v.YieldExpectedLR, &v.YieldExpectedRR,
				&v.UdderCounter, &v.UdderCounterFlags, &v.TeatCounterLF, &v.TeatCounterLR,
				&v.TeatCounterRF, &v.TeatCounterRR, &v.TeatCounterFlagsLF, &v.TeatCounterFlagsLR,
				&v.TeatCounterFlagsRF, &v.TeatCounterFlagsRR, &v.CleaningProgramNumber,
				&v.DiversionReason, &v.AmsSerialData, &v.OccAverage, &v.EnabledTeats,
				&v.OccHealthClass, &v.OccEmr, &v.SelectiveTakeoffApplied, &v.AlternativeAttach,
				&v.SmartPulsationRatio, &v.TeatsFailedCleaning, &v.MilkFlowDuration,
			); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning VoluntarySessionMilkYield row: %w", err)
			}

			out = append(out, v)
		}

		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}

		rows.Close()
	}

	return out, nil
}

const diversionColumns = `OID, Animal, "Group", LactationNumber, DivertDate, DivertReason,
	DivertedMilk, DiversionCost`

// extractDiversions follows the same first-cycle lookback policy as
// sessions, keyed on DivertDate.
func (e *Extractor) extractDiversions(ctx context.Context, watermark int64) ([]cloud.MilkDiversion, error) {
	scan := func(rows *sql.Rows) ([]cloud.MilkDiversion, error) {
		defer rows.Close()

		var out []cloud.MilkDiversion
		for rows.Next() {
			var d cloud.MilkDiversion
			if err := rows.Scan(
				&d.OID, &d.Animal, &d.Group, &d.LactationNumber, &d.DivertDate,
				&d.DivertReason, &d.DivertedMilk, &d.DiversionCost,
			); err != nil {
				return nil, fmt.Errorf("scanning HistoryMilkDiversionInfo row: %w", err)
			}

			out = append(out, d)
		}

		return out, rows.Err()
	}

	if watermark > 0 {
		query := fmt.Sprintf(`SELECT %s FROM HistoryMilkDiversionInfo WHERE OID > ? ORDER BY OID ASC LIMIT ?`, diversionColumns)

		rows, err := e.store.db.QueryContext(ctx, query, watermark, e.batchSize)
		if err != nil {
			return nil, fmt.Errorf("querying HistoryMilkDiversionInfo: %w", err)
		}

		return scan(rows)
	}

	query := fmt.Sprintf(`SELECT %s FROM HistoryMilkDiversionInfo WHERE DivertDate >= ? ORDER BY OID ASC LIMIT ?`, diversionColumns)

	cutoff := e.now().Add(-e.lookback).Format(timestampLayout)

	rows, err := e.store.db.QueryContext(ctx, query, cutoff, e.batchSize)
	if err != nil {
		return nil, fmt.Errorf("querying HistoryMilkDiversionInfo: %w", err)
	}

	out, err := scan(rows)
	if err != nil || len(out) > 0 {
		return out, err
	}

	rows, err = e.store.db.QueryContext(ctx, query, e.fallbackStart.Format(timestampLayout), e.batchSize)
	if err != nil {
		return nil, fmt.Errorf("querying HistoryMilkDiversionInfo: %w", err)
	}

	return scan(rows)
}

const historyColumns = `OID, SystemEntryTimeStamp, BasicAnimal, HistoryIndex, EventDate,
	AnimalState, LactationNumber, ReproductionStatus, "Group", OptimisticLockField`

func (e *Extractor) extractAnimalHistory(ctx context.Context, animalOIDs []int64) ([]cloud.AnimalHistory, error) {
	var out []cloud.AnimalHistory

	for _, ids := range chunk(animalOIDs, inChunkSize) {
		query := fmt.Sprintf(`SELECT %s FROM HistoryAnimal WHERE BasicAnimal IN (%s) ORDER BY OID ASC`,
			historyColumns, placeholders(len(ids)))

		rows, err := e.store.db.QueryContext(ctx, query, asArgs(ids)...)
		if err != nil {
			return nil, fmt.Errorf("querying HistoryAnimal: %w", err)
		}

		for rows.Next() {
			var h cloud.AnimalHistory
			if err := rows.Scan(
				&h.OID, &h.SystemEntryTimeStamp, &h.BasicAnimal, &h.HistoryIndex,
				&h.EventDate, &h.AnimalState, &h.LactationNumber, &h.ReproductionStatus,
				&h.Group, &h.OptimisticLockField,
			); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning HistoryAnimal row: %w", err)
			}

			out = append(out, h)
		}

		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}

		rows.Close()
	}

	return out, nil
}

// chunk splits ids into slices of at most size elements.
func chunk(ids []int64, size int) [][]int64 {
	var chunks [][]int64
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}

	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}

	return chunks
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func asArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	return args
}
