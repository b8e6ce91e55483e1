// Package export writes the action history to CSV and JSON files.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/letscook/internal/storage/models"
)

// Format represents the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" and "json".
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// Options configures the export behavior
type Options struct {
	Format        Format
	StartTime     time.Time
	EndTime       time.Time
	PageFilter    string
	ActionFilter  string
	OnlyConfirmed bool
	OutputDir     string
}

// ActionHeaders are the CSV columns of an exported action.
var ActionHeaders = []string{
	"created_at", "signature", "wallet", "action", "page",
	"status", "error", "priority_fee", "execution_time_s",
}

// ActionRecord flattens an action into CSV columns.
func ActionRecord(a *models.Action) []string {
	return []string{
		a.CreatedAt.UTC().Format(time.RFC3339),
		a.Signature,
		a.WalletAddress,
		a.Action,
		a.PageName,
		a.Status,
		a.ErrorMessage,
		strconv.FormatUint(a.PriorityFee, 10),
		strconv.FormatFloat(a.ExecutionTime, 'f', 3, 64),
	}
}

// Exporter writes action history files.
type Exporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewExporter creates a new exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// Export writes the actions matching options and returns the file path.
func (e *Exporter) Export(actions []*models.Action, options Options) (string, error) {
	filtered := filterActions(actions, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no actions match the export criteria")
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, e.filename(options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = e.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = e.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("Actions exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func filterActions(actions []*models.Action, options Options) []*models.Action {
	var filtered []*models.Action
	for _, a := range actions {
		if !options.StartTime.IsZero() && a.CreatedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && !a.CreatedAt.Before(options.EndTime) {
			continue
		}
		if options.PageFilter != "" && a.PageName != options.PageFilter {
			continue
		}
		if options.ActionFilter != "" && a.Action != options.ActionFilter {
			continue
		}
		if options.OnlyConfirmed && a.Status != "confirmed" {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered
}

func (e *Exporter) filename(options Options) string {
	prefix := "actions_all"
	if options.ActionFilter != "" {
		prefix = "actions_" + options.ActionFilter
	}
	if options.PageFilter != "" {
		prefix += "_" + options.PageFilter
	}
	return fmt.Sprintf("%s_%s.%s", prefix, e.now().Format("20060102_150405"), options.Format)
}

func (e *Exporter) exportToCSV(actions []*models.Action, outputPath string) error {
	j, err := NewJournal(outputPath, ActionHeaders, time.Second, e.logger)
	if err != nil {
		return err
	}
	for _, a := range actions {
		if err := j.Write(ActionRecord(a)); err != nil {
			_ = j.Close()
			return err
		}
	}
	return j.Close()
}

func (e *Exporter) exportToJSON(actions []*models.Action, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	data := struct {
		ExportTime  time.Time        `json:"export_time"`
		ActionCount int              `json:"action_count"`
		Actions     []*models.Action `json:"actions"`
		Summary     Summary          `json:"summary"`
	}{
		ExportTime:  e.now(),
		ActionCount: len(actions),
		Actions:     actions,
		Summary:     Summarize(actions),
	}

	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary contains statistics over exported actions.
type Summary struct {
	TotalActions     int            `json:"total_actions"`
	Confirmed        int            `json:"confirmed"`
	Failed           int            `json:"failed"`
	TimedOut         int            `json:"timed_out"`
	ByAction         map[string]int `json:"by_action"`
	UniquePages      int            `json:"unique_pages"`
	TotalPriorityFee uint64         `json:"total_priority_fee"`
	AvgExecutionTime float64        `json:"avg_execution_time_s"`
	SuccessRate      float64        `json:"success_rate"`
	StartDate        time.Time      `json:"start_date"`
	EndDate          time.Time      `json:"end_date"`
}

// Summarize computes statistics over actions ordered by creation time.
func Summarize(actions []*models.Action) Summary {
	s := Summary{TotalActions: len(actions), ByAction: make(map[string]int)}
	if len(actions) == 0 {
		return s
	}

	s.StartDate = actions[0].CreatedAt
	s.EndDate = actions[len(actions)-1].CreatedAt

	pages := make(map[string]bool)
	var execTotal float64
	for _, a := range actions {
		s.ByAction[a.Action]++
		if a.PageName != "" {
			pages[a.PageName] = true
		}
		switch a.Status {
		case "confirmed":
			s.Confirmed++
		case "failed":
			s.Failed++
		case "timed_out":
			s.TimedOut++
		}
		s.TotalPriorityFee += a.PriorityFee
		execTotal += a.ExecutionTime
	}

	s.UniquePages = len(pages)
	s.AvgExecutionTime = execTotal / float64(len(actions))
	s.SuccessRate = float64(s.Confirmed) / float64(len(actions)) * 100
	return s
}

// DailyReport is the action history of one UTC day.
type DailyReport struct {
	Date            time.Time        `json:"date"`
	ActionCount     int              `json:"action_count"`
	Summary         Summary          `json:"summary"`
	HourlyBreakdown []HourlyStats    `json:"hourly_breakdown"`
	Actions         []*models.Action `json:"actions"`
}

// HourlyStats represents action statistics for an hour
type HourlyStats struct {
	Hour        int    `json:"hour"`
	ActionCount int    `json:"action_count"`
	Confirmed   int    `json:"confirmed"`
	Failed      int    `json:"failed"`
	PriorityFee uint64 `json:"priority_fee"`
}

// ExportDailyReport writes the report for date's UTC day. It returns an
// empty path when there is nothing to report.
func (e *Exporter) ExportDailyReport(actions []*models.Action, date time.Time, outputDir string) (string, error) {
	date = date.UTC()
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	filtered := filterActions(actions, Options{
		StartTime: startOfDay,
		EndTime:   startOfDay.Add(24 * time.Hour),
	})
	if len(filtered) == 0 {
		e.logger.Info("No actions for daily report", zap.Time("date", startOfDay))
		return "", nil
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("daily_report_%s.json", startOfDay.Format("20060102")))

	report := DailyReport{
		Date:            startOfDay,
		ActionCount:     len(filtered),
		Summary:         Summarize(filtered),
		HourlyBreakdown: hourlyBreakdown(filtered),
		Actions:         filtered,
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	e.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", startOfDay),
		zap.Int("actions", len(filtered)))

	return outputPath, nil
}

func hourlyBreakdown(actions []*models.Action) []HourlyStats {
	hourly := make(map[int]*HourlyStats)
	for _, a := range actions {
		hour := a.CreatedAt.UTC().Hour()
		stats, ok := hourly[hour]
		if !ok {
			stats = &HourlyStats{Hour: hour}
			hourly[hour] = stats
		}
		stats.ActionCount++
		stats.PriorityFee += a.PriorityFee
		switch a.Status {
		case "confirmed":
			stats.Confirmed++
		case "failed", "timed_out":
			stats.Failed++
		}
	}

	var breakdown []HourlyStats
	for hour := 0; hour < 24; hour++ {
		if stats, ok := hourly[hour]; ok {
			breakdown = append(breakdown, *stats)
		}
	}
	return breakdown
}
