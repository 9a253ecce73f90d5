package numbering

import "context"

// MockGenerator is a test implementation of Generator.
// Use in unit tests to avoid database dependencies.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, tenantID string, in GenerateInput) (*GenerateResult, error)
	PreviewFunc  func(ctx context.Context, tenantID string, in PreviewInput) (string, error)
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, tenantID string, in GenerateInput) (*GenerateResult, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, tenantID, in)
	}
	// Default: return predictable mock number
	return &GenerateResult{DocumentNumber: "MOCK-0126-00001"}, nil
}

// Preview implements Generator.
func (m *MockGenerator) Preview(ctx context.Context, tenantID string, in PreviewInput) (string, error) {
	if m.PreviewFunc != nil {
		return m.PreviewFunc(ctx, tenantID, in)
	}
	return "MOCK-0126-00001", nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
