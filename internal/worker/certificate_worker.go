package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/signintech/gopdf"
	"github.com/skillbase/skillbase-backend/internal/config"
)

// CertificateWorker consumes certificates_queue, renders a PDF certificate
// for each passed session and records it. When the configured TTF font is
// unavailable, certificates are recorded without a file so the serial still
// exists for verification.
type CertificateWorker struct {
	pool     *pgxpool.Pool
	rdb      *redis.Client
	log      zerolog.Logger
	dir      string
	fontPath string
	fontOK   bool
}

// NewCertificateWorker creates a new CertificateWorker.
func NewCertificateWorker(pool *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *CertificateWorker {
	w := &CertificateWorker{
		pool:     pool,
		rdb:      rdb,
		log:      log.With().Str("component", "certificate_worker").Logger(),
		dir:      cfg.CertificateDir,
		fontPath: cfg.CertificateFont,
	}

	if _, err := os.Stat(w.fontPath); err != nil {
		w.log.Warn().Str("font", w.fontPath).Msg("Certificate font missing, running in record-only mode")
	} else if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.log.Warn().Err(err).Str("dir", w.dir).Msg("Certificate dir unavailable, running in record-only mode")
	} else {
		w.fontOK = true
	}

	return w
}

type certificatePayload struct {
	SessionID       uuid.UUID `json:"session_id"`
	UserID          uuid.UUID `json:"user_id"`
	AssessmentID    uuid.UUID `json:"assessment_id"`
	AssessmentTitle string    `json:"assessment_title"`
	Score           int       `json:"score"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *CertificateWorker) Start(ctx context.Context) {
	w.log.Info().Bool("pdf_enabled", w.fontOK).Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *CertificateWorker) processNext(ctx context.Context) {
	item, err := w.rdb.BLPop(ctx, time.Second, config.QueueKey.CertificatesQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(item) < 2 {
		return
	}

	var p certificatePayload
	if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return
	}

	if err := w.issue(ctx, &p); err != nil {
		w.log.Error().Err(err).
			Str("session_id", p.SessionID.String()).
			Msg("Issue error, retrying in 5s")
		w.rdb.RPush(ctx, config.QueueKey.CertificatesQueue, item[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *CertificateWorker) issue(ctx context.Context, p *certificatePayload) error {
	issuedAt := time.Now().UTC()
	serial := certificateSerial(p.SessionID, issuedAt)

	filePath := ""
	if w.fontOK {
		path := filepath.Join(w.dir, serial+".pdf")
		if err := w.renderPDF(path, p, serial, issuedAt); err != nil {
			// A render failure should not cost the candidate the record.
			w.log.Warn().Err(err).Str("serial", serial).Msg("PDF render failed, recording without file")
		} else {
			filePath = path
		}
	}

	// The session_id unique constraint makes re-delivery harmless.
	insertCtx, cancel := context.WithTimeout(ctx, storeWriteTimeout)
	defer cancel()
	_, err := w.pool.Exec(insertCtx,
		`INSERT INTO certificates (session_id, user_id, assessment_id, serial, file_path, issued_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id) DO NOTHING`,
		p.SessionID, p.UserID, p.AssessmentID, serial, filePath, issuedAt,
	)
	if err != nil {
		return err
	}

	w.log.Info().
		Str("serial", serial).
		Str("session_id", p.SessionID.String()).
		Msg("Certificate issued")
	return nil
}

func (w *CertificateWorker) renderPDF(path string, p *certificatePayload, serial string, issuedAt time.Time) error {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: gopdf.Rect{W: 841.89, H: 595.28}}) // A4 landscape
	pdf.AddPage()

	if err := pdf.AddTTFFont("main", w.fontPath); err != nil {
		return fmt.Errorf("load font: %w", err)
	}

	line := func(size float64, y float64, text string) error {
		if err := pdf.SetFont("main", "", size); err != nil {
			return err
		}
		width, err := pdf.MeasureTextWidth(text)
		if err != nil {
			return err
		}
		pdf.SetXY((841.89-width)/2, y)
		return pdf.Cell(nil, text)
	}

	if err := line(32, 140, "Certificate of Achievement"); err != nil {
		return err
	}
	if err := line(16, 230, "This certifies that the candidate passed"); err != nil {
		return err
	}
	if err := line(24, 280, p.AssessmentTitle); err != nil {
		return err
	}
	if err := line(18, 340, fmt.Sprintf("with a score of %d%%", p.Score)); err != nil {
		return err
	}
	if err := line(12, 440, "Issued "+issuedAt.Format("2 January 2006")); err != nil {
		return err
	}
	if err := line(10, 470, "Serial "+serial); err != nil {
		return err
	}

	return pdf.WritePdf(path)
}

// certificateSerial derives a stable, human-checkable serial from the
// session identity and issue date.
func certificateSerial(sessionID uuid.UUID, issuedAt time.Time) string {
	short := sessionID.String()[:8]
	return fmt.Sprintf("SB-%s-%s", issuedAt.Format("20060102"), short)
}
