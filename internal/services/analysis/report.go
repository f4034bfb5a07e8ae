package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
	"github.com/xeipuuv/gojsonschema"

	"github.com/bobmcallan/tickerwise/internal/common"
	"github.com/bobmcallan/tickerwise/internal/models"
)

// ErrInvalidReport is returned when the agent output is not a report with
// exactly the six required sections.
var ErrInvalidReport = errors.New("analysis report is invalid")

// reportDocument mirrors models.AnalysisReport for schema generation.
// Each section may be prose, a list or a keyed object.
type reportDocument struct {
	CompanyOverview  any `json:"Company Overview" jsonschema:"oneof_type=string;array;object"`
	StockPerformance any `json:"Stock Performance" jsonschema:"oneof_type=string;array;object"`
	RecentNews       any `json:"Recent News" jsonschema:"oneof_type=string;array;object"`
	AnalystRatings   any `json:"Analyst Ratings" jsonschema:"oneof_type=string;array;object"`
	TechnicalTrend   any `json:"Technical Trend Analysis" jsonschema:"oneof_type=string;array;object"`
	Recommendation   any `json:"Final Buy/Hold/Sell Recommendation" jsonschema:"oneof_type=string;array;object"`
}

var (
	reportSchemaOnce sync.Once
	reportSchema     *gojsonschema.Schema
	reportSchemaErr  error
)

// ReportSchema returns the JSON schema the report must satisfy
func ReportSchema() map[string]any {
	return common.ReflectSchema(reflect.TypeFor[reportDocument]())
}

func compiledReportSchema() (*gojsonschema.Schema, error) {
	reportSchemaOnce.Do(func() {
		reportSchema, reportSchemaErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(ReportSchema()))
	})
	return reportSchema, reportSchemaErr
}

// the model sometimes wraps the object in a fenced block or prose
var jsonFence = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ParseReport decodes the agent output into a report. Strict JSON is tried
// first, then json-repair, then Hjson. The decoded document must match
// ReportSchema.
func ParseReport(content string) (*models.AnalysisReport, error) {
	candidate := extractJSON(content)
	if candidate == "" {
		return nil, fmt.Errorf("%w: no JSON object in agent output", ErrInvalidReport)
	}

	doc, err := decodeLenient(candidate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}

	if err := validateReport(doc); err != nil {
		return nil, err
	}

	var report models.AnalysisReport
	if err := json.Unmarshal([]byte(doc), &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	return &report, nil
}

// extractJSON returns the fenced block if present, else the outermost
// braces of content.
func extractJSON(content string) string {
	s := strings.TrimSpace(StripToolCalls(content))
	if m := jsonFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// decodeLenient returns a canonical JSON encoding of input
func decodeLenient(input string) (string, error) {
	var v map[string]any
	if err := json.Unmarshal([]byte(input), &v); err == nil {
		return input, nil
	}

	if repaired, err := jsonrepair.RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), &v); err == nil {
			return repaired, nil
		}
	}

	var h map[string]any
	if err := hjson.Unmarshal([]byte(input), &h); err != nil {
		return "", fmt.Errorf("unparseable report: %w", err)
	}
	data, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("re-encoding hjson report: %w", err)
	}
	return string(data), nil
}

func validateReport(doc string) error {
	schema, err := compiledReportSchema()
	if err != nil {
		return fmt.Errorf("compiling report schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidReport, strings.Join(msgs, "; "))
}
