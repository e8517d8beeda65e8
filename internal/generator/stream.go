package generator

import "context"

// TokenStream delivers answer tokens incrementally. It is single-pass: read
// tokens with Next until it reports false, then check Err. Close releases
// the upstream connection and may be called at any time.
type TokenStream struct {
	tokens chan string
	cancel context.CancelFunc
	err    error
}

// NewStream wires a producer goroutine to a consumer-facing stream. The
// producer sends tokens through emit, which reports false once the consumer
// has closed the stream, and returns the terminal error. ctx is cancelled
// when the consumer calls Close.
func NewStream(ctx context.Context, produce func(ctx context.Context, emit func(string) bool) error) *TokenStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &TokenStream{
		tokens: make(chan string),
		cancel: cancel,
	}

	go func() {
		defer close(s.tokens)
		emit := func(tok string) bool {
			select {
			case s.tokens <- tok:
				return true
			case <-ctx.Done():
				return false
			}
		}
		// The write to s.err happens before close(s.tokens), which the
		// consumer observes before calling Err.
		s.err = produce(ctx, emit)
	}()

	return s
}

// Next returns the next token. It reports false when the stream is finished,
// after which Err returns the terminal error, if any.
func (s *TokenStream) Next() (string, bool) {
	tok, ok := <-s.tokens
	return tok, ok
}

// Err returns the error that ended the stream, or nil for a clean finish.
// Only valid after Next has reported false.
func (s *TokenStream) Err() error {
	return s.err
}

// Close cancels the upstream request and drains any in-flight tokens.
func (s *TokenStream) Close() {
	s.cancel()
	for range s.tokens {
	}
}

// staticStream returns a stream that emits a single pre-built token and
// finishes cleanly.
func staticStream(ctx context.Context, token string) *TokenStream {
	return NewStream(ctx, func(ctx context.Context, emit func(string) bool) error {
		emit(token)
		return nil
	})
}
