// Package notify emails a run summary to the sales operations list after
// each pipeline run. Delivery goes through AWS SES; the notifier is a
// no-op when disabled in config.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/pkg/logger"
)

// EmailSender is the slice of the SES API the notifier needs.
type EmailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Notifier sends run-summary emails. A nil client (disabled config or
// missing credentials) turns every send into a no-op.
type Notifier struct {
	client EmailSender
	cfg    config.NotifyConfig
}

// New creates a Notifier. When the config is disabled no AWS client is
// built and SendRunSummary does nothing.
func New(ctx context.Context, cfg config.NotifyConfig) (*Notifier, error) {
	n := &Notifier{cfg: cfg}
	if !cfg.Enabled {
		return n, nil
	}

	region := cfg.Region
	if region == "" {
		region = "ap-southeast-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for notifier: %w", err)
	}
	n.client = sesv2.NewFromConfig(awsCfg)
	return n, nil
}

// NewWithSender creates a Notifier over an existing sender. Used by tests
// and by callers that already hold an SES client.
func NewWithSender(sender EmailSender, cfg config.NotifyConfig) *Notifier {
	return &Notifier{client: sender, cfg: cfg}
}

// SendRunSummary emails the summary to the configured recipients. Disabled
// or unconfigured notifiers return nil without sending.
func (n *Notifier) SendRunSummary(ctx context.Context, summary *domain.RunSummary) error {
	if !n.cfg.Enabled || n.client == nil {
		return nil
	}
	if len(n.cfg.Recipients) == 0 {
		logger.Warn("run notification enabled but no recipients configured", "run_id", summary.RunID)
		return nil
	}

	if n.cfg.Timeout() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.Timeout())
		defer cancel()
	}

	subject := fmt.Sprintf("CVO run %s: %d customers scored, %s potential",
		summary.RunID, summary.ScoredRows, FormatRupiah(summary.TotalPotential()))

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.cfg.FromEmail),
		Destination:      &types.Destination{ToAddresses: n.cfg.Recipients},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(summaryHTML(summary)), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(summaryText(summary)), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("sending run summary for %s: %w", summary.RunID, err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	logger.Info("run summary emailed",
		"run_id", summary.RunID,
		"recipients", len(n.cfg.Recipients),
		"message_id", messageID)
	return nil
}

func summaryHTML(s *domain.RunSummary) string {
	var b strings.Builder
	b.WriteString("<h2>Customer Value Optimizer run ")
	b.WriteString(s.RunID)
	b.WriteString("</h2>")
	fmt.Fprintf(&b, "<p>Source: %s<br>Finished: %s (took %s)</p>",
		s.SourceFile, s.FinishedAt.Format("2006-01-02 15:04 MST"), s.Duration().Round(time.Second))

	b.WriteString("<table border=\"1\" cellpadding=\"4\" cellspacing=\"0\">")
	row := func(label, value string) {
		fmt.Fprintf(&b, "<tr><td>%s</td><td align=\"right\">%s</td></tr>", label, value)
	}
	row("Rows in extract", fmt.Sprintf("%d", s.TotalRows))
	row("Customers scored", fmt.Sprintf("%d", s.ScoredRows))
	row("Excluded from upsell", fmt.Sprintf("%d", s.ExcludedRows))
	row("Upsell potential (12m)", FormatRupiah(s.UpsellValue))
	row("Cross-sell potential (12m)", FormatRupiah(s.CrossSellValue))
	row("Total potential", FormatRupiah(s.TotalPotential()))
	row("Mean data quality", fmt.Sprintf("%.2f", s.MeanQuality))
	b.WriteString("</table>")

	if len(s.Warnings) > 0 {
		b.WriteString("<h3>Warnings</h3><ul>")
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "<li>%s</li>", w)
		}
		b.WriteString("</ul>")
	}
	return b.String()
}

func summaryText(s *domain.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer Value Optimizer run %s\n", s.RunID)
	fmt.Fprintf(&b, "Source: %s\n", s.SourceFile)
	fmt.Fprintf(&b, "Customers scored: %d (%d excluded from upsell)\n", s.ScoredRows, s.ExcludedRows)
	fmt.Fprintf(&b, "Upsell potential:     %s\n", FormatRupiah(s.UpsellValue))
	fmt.Fprintf(&b, "Cross-sell potential: %s\n", FormatRupiah(s.CrossSellValue))
	fmt.Fprintf(&b, "Total potential:      %s\n", FormatRupiah(s.TotalPotential()))
	for _, w := range s.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	return b.String()
}

// FormatRupiah renders an amount the way the sales team reads it, with
// dot thousand separators and no decimals: "Rp 1.150.000.000".
func FormatRupiah(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := fmt.Sprintf("%.0f", v)

	var b strings.Builder
	if neg {
		b.WriteString("-")
	}
	b.WriteString("Rp ")
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteString(".")
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteString(".")
		}
	}
	return b.String()
}
