package domain

import "strings"

// Stage is the lifecycle position of a cage. Values are the labels stored in the cages table.
type Stage string

const (
	StageCreated           Stage = "CRIADA"
	StageOutboundTransit   Stage = "EM_TRANSPORTE_IDA"
	StageReceivedAtLaundry Stage = "RECEBIDA_LAVANDERIA"
	StageSorting           Stage = "EM_SEPARACAO"
	StageWashing           Stage = "EM_LAVAGEM"
	StageDrying            Stage = "EM_SECAGEM"
	StageFolding           Stage = "EM_DOBRA"
	StageReadyForDispatch  Stage = "PRONTA_EXPEDICAO"
	StageReturnTransit     Stage = "EM_TRANSPORTE_VOLTA"
	StageDelivered         Stage = "ENTREGUE"
)

// Stages lists every stage in lifecycle order.
func Stages() []Stage {
	return []Stage{
		StageCreated,
		StageOutboundTransit,
		StageReceivedAtLaundry,
		StageSorting,
		StageWashing,
		StageDrying,
		StageFolding,
		StageReadyForDispatch,
		StageReturnTransit,
		StageDelivered,
	}
}

// Valid reports whether s is one of the defined stages.
func (s Stage) Valid() bool {
	switch s {
	case StageCreated, StageOutboundTransit, StageReceivedAtLaundry, StageSorting, StageWashing,
		StageDrying, StageFolding, StageReadyForDispatch, StageReturnTransit, StageDelivered:
		return true
	}
	return false
}

func (s Stage) String() string {
	return string(s)
}

// ParseStage accepts a stored label, case-insensitively.
func ParseStage(raw string) (Stage, error) {
	stage := Stage(strings.ToUpper(strings.TrimSpace(raw)))
	if !stage.Valid() {
		return "", InvalidInputf("unknown stage %q", raw)
	}
	return stage, nil
}
