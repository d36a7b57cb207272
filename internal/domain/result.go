package domain

// StepResult — результат выполнения одного шага.
//
// Поля результата доступны следующим шагам через {{ step_id.field }}.
type StepResult struct {
	// Status — итоговый статус шага.
	Status StepStatus `json:"status"`

	// Output — основной результат шага (текст, значение переменной).
	Output any `json:"output,omitempty"`

	// Stdout / Stderr — вывод команды (только для command.*).
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`

	// ExitCode — код возврата процесса.
	ExitCode int `json:"exit_code"`

	// Error — текст ошибки для FAILED.
	Error string `json:"error,omitempty"`

	// Data — дополнительные поля, специфичные для типа шага.
	Data map[string]any `json:"data,omitempty"`
}

// Success создаёт успешный результат с output.
func Success(output any) *StepResult {
	return &StepResult{Status: StepStatusSuccess, Output: output}
}

// Failure создаёт результат FAILED с сообщением.
func Failure(message string) *StepResult {
	return &StepResult{Status: StepStatusFailed, Error: message, ExitCode: -1}
}

// Skipped создаёт результат SKIPPED.
func Skipped() *StepResult {
	return &StepResult{Status: StepStatusSkipped}
}

// WithData добавляет поле в Data и возвращает тот же результат.
func (r *StepResult) WithData(key string, value any) *StepResult {
	if r.Data == nil {
		r.Data = make(map[string]any)
	}
	r.Data[key] = value
	return r
}

// Failed возвращает true для статуса FAILED.
func (r *StepResult) Failed() bool {
	return r.Status == StepStatusFailed
}

// Fields возвращает плоскую карту полей для записи в контекст.
// Ключи Data добавляются на верхний уровень и не перекрывают основные поля.
func (r *StepResult) Fields() map[string]any {
	fields := make(map[string]any, len(r.Data)+6)
	for k, v := range r.Data {
		fields[k] = v
	}

	output := r.Output
	if output == nil {
		output = ""
	}

	fields["status"] = string(r.Status)
	fields["output"] = output
	fields["stdout"] = r.Stdout
	fields["stderr"] = r.Stderr
	fields["exit_code"] = r.ExitCode
	fields["error_message"] = r.Error
	return fields
}
