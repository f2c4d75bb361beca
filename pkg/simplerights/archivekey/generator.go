package archivekey

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator defines the interface for report archive key strategies
type Generator interface {
	// GenerateKey creates an object key for an archived report
	GenerateKey(reportID uuid.UUID, generatedAt time.Time, metadata *KeyMetadata) string
}

// KeyMetadata contains information that influences key generation
type KeyMetadata struct {
	TenantID string
	Kind     string // "rights-report" by default
	Format   string // file extension without dot, "json" by default
}

func (m *KeyMetadata) kind() string {
	if m == nil || m.Kind == "" {
		return "rights-report"
	}
	return sanitizePathComponent(m.Kind)
}

func (m *KeyMetadata) format() string {
	if m == nil || m.Format == "" {
		return "json"
	}
	return sanitizePathComponent(m.Format)
}

// FlatGenerator stores every report directly under reports/
type FlatGenerator struct{}

func NewFlatGenerator() *FlatGenerator {
	return &FlatGenerator{}
}

func (g *FlatGenerator) GenerateKey(reportID uuid.UUID, generatedAt time.Time, metadata *KeyMetadata) string {
	return fmt.Sprintf("reports/%s-%s.%s", metadata.kind(), reportID, metadata.format())
}

// DateShardedGenerator partitions reports by UTC generation date
// Structure: reports/{kind}/YYYY/MM/DD/{timestamp}_{id}.{format}
type DateShardedGenerator struct{}

func NewDateShardedGenerator() *DateShardedGenerator {
	return &DateShardedGenerator{}
}

func (g *DateShardedGenerator) GenerateKey(reportID uuid.UUID, generatedAt time.Time, metadata *KeyMetadata) string {
	t := generatedAt.UTC()
	return fmt.Sprintf("reports/%s/%04d/%02d/%02d/%s_%s.%s",
		metadata.kind(), t.Year(), int(t.Month()), t.Day(),
		t.Format("150405"), reportID, metadata.format())
}

// TenantAwareGenerator adds tenant isolation to another generator
// Structure: tenants/{tenant}/{base key}
type TenantAwareGenerator struct {
	BaseGenerator Generator
	DefaultTenant string
}

func NewTenantAwareGenerator() *TenantAwareGenerator {
	return &TenantAwareGenerator{
		BaseGenerator: NewDateShardedGenerator(),
		DefaultTenant: "default",
	}
}

func (g *TenantAwareGenerator) GenerateKey(reportID uuid.UUID, generatedAt time.Time, metadata *KeyMetadata) string {
	tenant := g.DefaultTenant
	if metadata != nil && metadata.TenantID != "" {
		tenant = sanitizePathComponent(metadata.TenantID)
	}
	return fmt.Sprintf("tenants/%s/%s", tenant, g.BaseGenerator.GenerateKey(reportID, generatedAt, metadata))
}

// CustomFuncGenerator allows users to provide their own key generation function
type CustomFuncGenerator struct {
	GenerateFunc func(reportID uuid.UUID, generatedAt time.Time, metadata *KeyMetadata) string
}

func NewCustomFuncGenerator(fn func(reportID uuid.UUID, generatedAt time.Time, metadata *KeyMetadata) string) *CustomFuncGenerator {
	return &CustomFuncGenerator{GenerateFunc: fn}
}

func (g *CustomFuncGenerator) GenerateKey(reportID uuid.UUID, generatedAt time.Time, metadata *KeyMetadata) string {
	return g.GenerateFunc(reportID, generatedAt, metadata)
}

func sanitizePathComponent(component string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return strings.ToLower(replacer.Replace(component))
}

// NewRecommendedGenerator returns the recommended generator for new installations
func NewRecommendedGenerator() Generator {
	return NewDateShardedGenerator()
}
