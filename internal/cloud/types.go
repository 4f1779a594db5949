// Package cloud implements the HTTP client for the Pecus Chain cloud
// API: watermark retrieval, farm registration, and batch ingestion.
// All requests go through a retry loop with exponential backoff for
// transient failures.
package cloud

import "time"

// Watermarks is the per-stream high-water mark structure returned by
// the sync status endpoint. Each field is the highest OID the cloud
// has durably accepted for that stream; zero means nothing accepted
// yet. The agent never writes these.
type Watermarks struct {
	LastSessionOID   int64 `json:"last_oid"`
	LastAnimalOID    int64 `json:"last_animal_oid"`
	LastLactationOID int64 `json:"last_lactation_oid"`
	LastDiversionOID int64 `json:"last_history_milk_diversion_oid"`
}

// RegistrationRequest is the body for the farm registration endpoint.
type RegistrationRequest struct {
	Name string `json:"name"`
}

// Registration is the cloud's response to a successful registration.
type Registration struct {
	FarmID    string    `json:"farm_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// IngestResult reports per-stream acceptance counts from a successful
// ingest call.
type IngestResult struct {
	Status string         `json:"status"`
	Counts map[string]int `json:"counts"`
}

// Payload is one cycle's upload: every non-empty stream batch for one
// farm, delivered in a single request. Record field names match the
// DelPro column names the cloud schema preserves, hence the PascalCase
// JSON keys. Timestamp columns travel as the strings the local store
// returns; the cloud side parses them.
type Payload struct {
	FarmID            string             `json:"farm_id"`
	BasicAnimals      []BasicAnimal      `json:"basic_animals"`
	LactationsSummary []Lactation        `json:"lactations_summary"`
	Sessions          []Session          `json:"sessions_milk_yield"`
	VoluntarySessions []VoluntarySession `json:"voluntary_sessions_milk_yield"`
	DiversionHistory  []MilkDiversion    `json:"history_milk_diversion_info"`
	AnimalHistory     []AnimalHistory    `json:"history_animals"`
}

// Empty reports whether the payload carries no records at all.
func (p *Payload) Empty() bool {
	return len(p.BasicAnimals) == 0 &&
		len(p.LactationsSummary) == 0 &&
		len(p.Sessions) == 0 &&
		len(p.VoluntarySessions) == 0 &&
		len(p.DiversionHistory) == 0 &&
		len(p.AnimalHistory) == 0
}

// BasicAnimal is one row of the herd register. Only OID is guaranteed
// present; DelPro leaves most columns NULL depending on installation.
type BasicAnimal struct {
	OID                          int64    `json:"OID"`
	SystemEntryTimeStamp         *string  `json:"SystemEntryTimeStamp"`
	Number                       *int64   `json:"Number"`
	AnimalGuid                   *string  `json:"AnimalGuid"`
	Name                         *string  `json:"Name"`
	Type                         *int64   `json:"Type"`
	Sex                          *int64   `json:"Sex"`
	Breed                        *int64   `json:"Breed"`
	BirthDate                    *string  `json:"BirthDate"`
	Comment                      *string  `json:"Comment"`
	CommentDate                  *string  `json:"CommentDate"`
	ExitDate                     *string  `json:"ExitDate"`
	Modified                     *string  `json:"Modified"`
	PedigreeInfo                 *int64   `json:"PedigreeInfo"`
	CalfSize                     *string  `json:"CalfSize"`
	CalfHealthStatus             *string  `json:"CalfHealthStatus"`
	CalfUsage                    *string  `json:"CalfUsage"`
	Group                        *int64   `json:"Group"`
	TransponderID                *int64   `json:"TransponderID"`
	TransponderType              *int64   `json:"TransponderType"`
	EarTagLeft                   *int64   `json:"EarTagLeft"`
	EarTagRight                  *int64   `json:"EarTagRight"`
	BirthWeight                  *float64 `json:"BirthWeight"`
	IsTwin                       *bool    `json:"IsTwin"`
	BirthEvent                   *string  `json:"BirthEvent"`
	ToBeCulled                   *bool    `json:"ToBeCulled"`
	LatestHistoryIndex           *int64   `json:"LatestHistoryIndex"`
	OptimisticLockField          *int64   `json:"OptimisticLockField"`
	GCRecord                     *string  `json:"GCRecord"`
	ObjectType                   *int64   `json:"ObjectType"`
	ManualRationControl          *bool    `json:"ManualRationControl"`
	CurrentFeedTable             *int64   `json:"CurrentFeedTable"`
	ConsumptionRate              *int64   `json:"ConsumptionRate"`
	ActivitySetting              *int64   `json:"ActivitySetting"`
	BullID                       *string  `json:"BullID"`
	ExitType                     *int64   `json:"ExitType"`
	DrinkData                    *int64   `json:"DrinkData"`
	MilkingTestAnimal            *string  `json:"MilkingTestAnimal"`
	HairColor                    *string  `json:"HairColor"`
	MilkConfig                   *int64   `json:"MilkConfig"`
	Imported                     *bool    `json:"Imported"`
	Exported                     *bool    `json:"Exported"`
	WeightIncreaseDecreaseStatus *string  `json:"WeightIncreaseDecreaseStatus"`
}

// Lactation is one row of the per-animal lactation summary.
type Lactation struct {
	OID                  int64    `json:"OID"`
	SystemEntryTimeStamp *string  `json:"SystemEntryTimeStamp"`
	Animal               *int64   `json:"Animal"`
	LactationNumber      *int64   `json:"LactationNumber"`
	StartDate            *string  `json:"StartDate"`
	EndDate              *string  `json:"EndDate"`
	PeakYield            *float64 `json:"PeakYield"`
	DaysToPeak           *int64   `json:"DaysToPeak"`
	OptimisticLockField  *int64   `json:"OptimisticLockField"`
	GCRecord             *string  `json:"GCRecord"`
	MatureEquivalent     *string  `json:"MatureEquivalent"`
	HistoryTotalYield    *float64 `json:"HistoryTotalYield"`
}

// Session is one completed milking session.
type Session struct {
	OID                      int64    `json:"OID"`
	SessionNo                string   `json:"SessionNo"`
	TotalYield               *float64 `json:"TotalYield"`
	Destination              *int64   `json:"Destination"`
	User                     *string  `json:"User"`
	ExpectedYield            *float64 `json:"ExpectedYield"`
	ObjectGuid               *string  `json:"ObjectGuid"`
	BeginTime                *string  `json:"BeginTime"`
	BasicAnimal              *int64   `json:"BasicAnimal"`
	AnimalDaily              *int64   `json:"AnimalDaily"`
	EndTime                  *string  `json:"EndTime"`
	MilkingDevice            *int64   `json:"MilkingDevice"`
	PreviousEndTime          *string  `json:"PreviousEndTime"`
	AvgConductivity          *float64 `json:"AvgConductivity"`
	MaxConductivity          *float64 `json:"MaxConductivity"`
	AverageConductivity7Days *float64 `json:"AverageConductivity7Days"`
	RelativeConductivity     *float64 `json:"RelativeConductivity"`
	AverageBlood             *float64 `json:"AverageBlood"`
	MaxBlood                 *float64 `json:"MaxBlood"`
	ModifiedSource           *int64   `json:"ModifiedSource"`
	SampleTube               *int64   `json:"SampleTube"`
	SampleTubeRack           *int64   `json:"SampleTubeRack"`
	SampleTubePosition       *int64   `json:"SampleTubePosition"`
	ObjectType               *int64   `json:"ObjectType"`
	SystemEntryTimeStamp     *string  `json:"SystemEntryTimeStamp"`
}

// VoluntarySession is the per-quarter detail record a voluntary
// milking system writes alongside each session. It shares the
// session's OID one-to-one.
type VoluntarySession struct {
	OID                     int64    `json:"OID"`
	ExpectedRateLF          *float64 `json:"ExpectedRateLF"`
	ExpectedRateRF          *float64 `json:"ExpectedRateRF"`
	ExpectedRateLR          *float64 `json:"ExpectedRateLR"`
	ExpectedRateRR          *float64 `json:"ExpectedRateRR"`
	CarryoverLF             *float64 `json:"CarryoverLF"`
	CarryoverRF             *float64 `json:"CarryoverRF"`
	CarryoverLR             *float64 `json:"CarryoverLR"`
	CarryoverRR             *float64 `json:"CarryoverRR"`
	QuarterLFYield          *float64 `json:"QuarterLFYield"`
	QuarterRFYield          *float64 `json:"QuarterRFYield"`
	QuarterLRYield          *float64 `json:"QuarterLRYield"`
	QuarterRRYield          *float64 `json:"QuarterRRYield"`
	MilkType                *int64   `json:"MilkType"`
	Kickoff                 *int64   `json:"Kickoff"`
	Incomplete              *int64   `json:"Incomplete"`
	NotMilkedTeats          *int64   `json:"NotMilkedTeats"`
	ConductivityLF          *float64 `json:"ConductivityLF"`
	ConductivityRF          *float64 `json:"ConductivityRF"`
	ConductivityLR          *float64 `json:"ConductivityLR"`
	ConductivityRR          *float64 `json:"ConductivityRR"`
	BloodLF                 *float64 `json:"BloodLF"`
	BloodRF                 *float64 `json:"BloodRF"`
	BloodLR                 *float64 `json:"BloodLR"`
	BloodRR                 *float64 `json:"BloodRR"`
	PeakFlowLF              *float64 `json:"PeakFlowLF"`
	PeakFlowRF              *float64 `json:"PeakFlowRF"`
	PeakFlowLR              *float64 `json:"PeakFlowLR"`
	PeakFlowRR              *float64 `json:"PeakFlowRR"`
	MeanFlowLF              *float64 `json:"MeanFlowLF"`
	MeanFlowRF              *float64 `json:"MeanFlowRF"`
	MeanFlowLR              *float64 `json:"MeanFlowLR"`
	MeanFlowRR              *float64 `json:"MeanFlowRR"`
	Occ                     *int64   `json:"Occ"`
	Mdi                     *float64 `json:"Mdi"`
	Performance             *int64   `json:"Performance"`
	CurrentCombinedAmd      *float64 `json:"CurrentCombinedAmd"`
	YieldExpectedLF         *float64 `json:"YieldExpectedLF"`
	YieldExpectedRF         *float64 `json:"YieldExpectedRF"`
	YieldExpectedLR         *float64 `json:"YieldExpectedLR"`
	YieldExpectedRR         *float64 `json:"YieldExpectedRR"`
	UdderCounter            *int64   `json:"UdderCounter"`
	UdderCounterFlags       *int64   `json:"UdderCounterFlags"`
	TeatCounterLF           *int64   `json:"TeatCounterLF"`
	TeatCounterLR           *int64   `json:"TeatCounterLR"`
	TeatCounterRF           *int64   `json:"TeatCounterRF"`
	TeatCounterRR           *int64   `json:"TeatCounterRR"`
	TeatCounterFlagsLF      *int64   `json:"TeatCounterFlagsLF"`
	TeatCounterFlagsLR      *int64   `json:"TeatCounterFlagsLR"`
	TeatCounterFlagsRF      *int64   `json:"TeatCounterFlagsRF"`
	TeatCounterFlagsRR      *int64   `json:"TeatCounterFlagsRR"`
	CleaningProgramNumber   *int64   `json:"CleaningProgramNumber"`
	DiversionReason         *int64   `json:"DiversionReason"`
	AmsSerialData           *string  `json:"AmsSerialData"`
	OccAverage              *int64   `json:"OccAverage"`
	EnabledTeats            *int64   `json:"EnabledTeats"`
	OccHealthClass          *int64   `json:"OccHealthClass"`
	OccEmr                  *int64   `json:"OccEmr"`
	SelectiveTakeoffApplied *bool    `json:"SelectiveTakeoffApplied"`
	AlternativeAttach       *int64   `json:"AlternativeAttach"`
	SmartPulsationRatio     *int64   `json:"SmartPulsationRatio"`
	TeatsFailedCleaning     *int64   `json:"TeatsFailedCleaning"`
	MilkFlowDuration        *int64   `json:"MilkFlowDuration"`
}

// MilkDiversion is one historical milk diversion event.
type MilkDiversion struct {
	OID             int64    `json:"OID"`
	Animal          *int64   `json:"Animal"`
	Group           *int64   `json:"Group"`
	LactationNumber *int64   `json:"LactationNumber"`
	DivertDate      *string  `json:"DivertDate"`
	DivertReason    *int64   `json:"DivertReason"`
	DivertedMilk    *float64 `json:"DivertedMilk"`
	DiversionCost   *float64 `json:"DiversionCost"`
}

// AnimalHistory is one state-change row from the per-animal history
// table, keyed back to the herd register via BasicAnimal.
type AnimalHistory struct {
	OID                  int64   `json:"OID"`
	SystemEntryTimeStamp *string `json:"SystemEntryTimeStamp"`
	BasicAnimal          *int64  `json:"BasicAnimal"`
	HistoryIndex         *int64  `json:"HistoryIndex"`
	EventDate            *string `json:"EventDate"`
	AnimalState          *int64  `json:"AnimalState"`
	LactationNumber      *int64  `json:"LactationNumber"`
	ReproductionStatus   *int64  `json:"ReproductionStatus"`
	Group                *int64  `json:"Group"`
	OptimisticLockField  *int64  `json:"OptimisticLockField"`
}
