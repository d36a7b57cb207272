package runner

// blockState — стек открытых блоков condition.if.
//
// Каждый элемент — признак пропуска шагов внутри блока.
// Блок внутри пропускаемого блока тоже пропускается, поэтому
// пропуск заканчивается на парном condition.endif.
type blockState struct {
	frames []bool
}

// Skipping возвращает true, если текущий блок пропускается.
func (s *blockState) Skipping() bool {
	return len(s.frames) > 0 && s.frames[len(s.frames)-1]
}

// Open открывает блок.
func (s *blockState) Open(skip bool) {
	s.frames = append(s.frames, skip || s.Skipping())
}

// Close закрывает самый внутренний блок.
// Возвращает false, если открытых блоков нет.
func (s *blockState) Close() bool {
	if len(s.frames) == 0 {
		return false
	}
	s.frames = s.frames[:len(s.frames)-1]
	return true
}

// Depth возвращает число открытых блоков.
func (s *blockState) Depth() int {
	return len(s.frames)
}
