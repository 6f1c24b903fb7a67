package gauge

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/getgauge/gauge-proto/go/gauge_messages"
	"google.golang.org/grpc"

	"github.com/lirany1/cikit/pkg/config"
	"github.com/lirany1/cikit/pkg/logger"
	"github.com/lirany1/cikit/pkg/models"
	"github.com/lirany1/cikit/pkg/report"
	"github.com/lirany1/cikit/pkg/storage"
)

// ReportDirName is the directory created under the Gauge reports directory
const ReportDirName = "cikit-report"

// Plugin is a Gauge reporter that writes the cikit HTML report
type Plugin struct {
	gauge_messages.UnimplementedReporterServer
	config   *config.Config
	server   *grpc.Server
	stopChan chan struct{}
	stdout   io.Writer
	now      func() time.Time
}

// NewPlugin creates a new plugin instance
func NewPlugin(cfg *config.Config) *Plugin {
	if cfg == nil {
		cfg = config.NewConfig()
		cfg.LoadFromEnv()
	}
	return &Plugin{
		config:   cfg,
		stopChan: make(chan struct{}),
		stdout:   os.Stdout,
		now:      time.Now,
	}
}

// ReportsDir resolves the directory Gauge asks reporters to write to
func ReportsDir() string {
	projectRoot := os.Getenv("GAUGE_PROJECT_ROOT")
	if projectRoot == "" {
		projectRoot = "."
	}

	reportsDir := os.Getenv("gauge_reports_dir")
	if reportsDir == "" {
		reportsDir = filepath.Join(projectRoot, "reports")
	} else if !filepath.IsAbs(reportsDir) {
		reportsDir = filepath.Join(projectRoot, reportsDir)
	}
	return filepath.Join(reportsDir, ReportDirName)
}

// Start serves the reporter on a random local port and blocks until Kill
func (p *Plugin) Start() error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	p.server = grpc.NewServer(grpc.MaxRecvMsgSize(1024 * 1024 * 1024))
	gauge_messages.RegisterReporterServer(p.server, p)

	port := listener.Addr().(*net.TCPAddr).Port

	go func() {
		if err := p.server.Serve(listener); err != nil {
			logger.Errorf("gRPC server error: %v", err)
		}
		p.stop()
	}()

	// Gauge reads the port from this exact line
	if _, err := fmt.Fprintf(p.stdout, "Listening on port:%d\n", port); err != nil {
		return fmt.Errorf("failed to announce port: %w", err)
	}
	logger.Debugf("gRPC server ready on port %d", port)

	<-p.stopChan
	logger.Debug("Plugin shutdown complete")
	return nil
}

func (p *Plugin) stop() {
	select {
	case <-p.stopChan:
	default:
		close(p.stopChan)
	}
}

// Kill stops the plugin
func (p *Plugin) Kill(ctx context.Context, request *gauge_messages.KillProcessRequest) (*gauge_messages.Empty, error) {
	logger.Debug("Shutting down plugin...")
	if p.server != nil {
		go p.server.GracefulStop()
	}
	p.stop()
	return &gauge_messages.Empty{}, nil
}

// NotifySuiteResult writes the HTML report for the finished suite
func (p *Plugin) NotifySuiteResult(ctx context.Context, result *gauge_messages.SuiteExecutionResult) (*gauge_messages.Empty, error) {
	if result.GetSuiteResult() == nil {
		return &gauge_messages.Empty{}, nil
	}
	if err := p.WriteReport(ctx, result.GetSuiteResult(), ReportsDir()); err != nil {
		logger.Errorf("Failed to generate report: %v", err)
		return &gauge_messages.Empty{}, err
	}
	return &gauge_messages.Empty{}, nil
}

// WriteReport converts the suite result and writes the HTML report to dir
func (p *Plugin) WriteReport(ctx context.Context, result *gauge_messages.ProtoSuiteResult, dir string) error {
	startedAt := p.now()
	suites := ConvertSuiteResult(result, startedAt)
	summary := models.Summarize(suites)

	html, err := report.NewHTMLReport(dir, true)
	if err != nil {
		return err
	}
	title := result.GetProjectName()
	if title != "" {
		title += " test report"
	}
	if err := html.WithTitle(title).Write(models.NewFullReport(summary, suites, nil)); err != nil {
		return err
	}

	if p.config.History.Enabled {
		p.recordHistory(ctx, summary, suites, startedAt)
	}
	return nil
}

func (p *Plugin) recordHistory(ctx context.Context, summary models.Summary, suites []models.SuiteResult, startedAt time.Time) {
	db, err := storage.NewDatabase(p.config.History.Path)
	if err != nil {
		logger.Warnf("Failed to open history database: %v", err)
		return
	}
	defer db.Close()

	if err := db.SaveRun(ctx, storage.NewRunRecord(summary, startedAt), suites); err != nil {
		logger.Warnf("Failed to save run history: %v", err)
	}
}

func (p *Plugin) NotifyExecutionStarting(ctx context.Context, info *gauge_messages.ExecutionStartingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifyExecutionEnding(ctx context.Context, result *gauge_messages.ExecutionEndingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifySpecExecutionStarting(ctx context.Context, info *gauge_messages.SpecExecutionStartingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifySpecExecutionEnding(ctx context.Context, result *gauge_messages.SpecExecutionEndingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifyScenarioExecutionStarting(ctx context.Context, info *gauge_messages.ScenarioExecutionStartingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifyScenarioExecutionEnding(ctx context.Context, result *gauge_messages.ScenarioExecutionEndingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifyStepExecutionStarting(ctx context.Context, info *gauge_messages.StepExecutionStartingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifyStepExecutionEnding(ctx context.Context, result *gauge_messages.StepExecutionEndingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifyConceptExecutionStarting(ctx context.Context, info *gauge_messages.ConceptExecutionStartingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifyConceptExecutionEnding(ctx context.Context, result *gauge_messages.ConceptExecutionEndingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}
