package domain

// StageForWeighing maps a weighing checkpoint to the stage it puts the cage in.
func StageForWeighing(kind WeighingKind) (Stage, bool) {
	switch kind {
	case WeighingDeparture:
		return StageOutboundTransit, true
	case WeighingArrival:
		return StageReceivedAtLaundry, true
	case WeighingDispatch:
		return StageReadyForDispatch, true
	}
	return "", false
}

// StageForTransport maps a transport leg to the stage it puts the cage in.
// A delivered return leg ends the cycle.
func StageForTransport(kind TransportKind, status TransportStatus) (Stage, bool) {
	switch kind {
	case TransportOutbound:
		return StageOutboundTransit, true
	case TransportReturn:
		if status == TransportDelivered {
			return StageDelivered, true
		}
		return StageReturnTransit, true
	}
	return "", false
}

// StageForStep maps a processing step to the stage it puts the cage in.
func StageForStep(kind StepKind) (Stage, bool) {
	switch kind {
	case StepSorting:
		return StageSorting, true
	case StepWashing:
		return StageWashing, true
	case StepDrying:
		return StageDrying, true
	case StepFolding:
		return StageFolding, true
	}
	return "", false
}
