package mocks

import "context"

// MockTxRunner runs the function directly; the in-memory mock stores apply
// their effects immediately, so tests assert on observable outcomes instead
// of transaction boundaries. FailNext makes the next WithinTx call fail with
// the given error before fn runs, to exercise transient-failure retries.
type MockTxRunner struct {
	Calls    int
	FailNext []error
}

func NewMockTxRunner() *MockTxRunner {
	return &MockTxRunner{}
}

func (m *MockTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	if len(m.FailNext) > 0 {
		err := m.FailNext[0]
		m.FailNext = m.FailNext[1:]
		if err != nil {
			return err
		}
	}
	return fn(ctx)
}
