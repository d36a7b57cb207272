package domain

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	RUNNING → SUCCEEDED
//	        ↘ FAILED
//	        ↘ CANCELLED (контекст отменён)
type RunStatus string

const (
	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — все шаги выполнены или пропущены.
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — run остановлен упавшим шагом.
	RunStatusFailed RunStatus = "FAILED"

	// RunStatusCancelled — run прерван отменой контекста.
	RunStatusCancelled RunStatus = "CANCELLED"
)

// StepStatus — статус выполнения шага.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCESS
//	                  ↘ FAILED
//	        ↘ SKIPPED (шаг выключен или находится в пропущенном блоке)
type StepStatus string

const (
	// StepStatusPending — шаг ещё не выполнялся.
	StepStatusPending StepStatus = "PENDING"

	// StepStatusRunning — шаг выполняется.
	StepStatusRunning StepStatus = "RUNNING"

	// StepStatusSuccess — шаг выполнен успешно.
	StepStatusSuccess StepStatus = "SUCCESS"

	// StepStatusFailed — шаг завершился с ошибкой.
	StepStatusFailed StepStatus = "FAILED"

	// StepStatusSkipped — шаг не выполнялся.
	StepStatusSkipped StepStatus = "SKIPPED"
)
