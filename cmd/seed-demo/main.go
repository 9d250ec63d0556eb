package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/skillbase/skillbase-backend/internal/config"
	"github.com/skillbase/skillbase-backend/internal/database"
	"github.com/skillbase/skillbase-backend/internal/logger"
	"github.com/skillbase/skillbase-backend/internal/model"
	"github.com/skillbase/skillbase-backend/internal/repository"
)

// Seeds a demo organization with a question deck and a published
// assessment, so a freshly migrated database can serve sessions right away.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	orgID := uuid.New()
	deckID := uuid.New()

	fmt.Println("=== Seeding demo deck and assessment ===")

	_, err = pool.Exec(ctx,
		`INSERT INTO decks (id, org_id, title) VALUES ($1, $2, $3)`,
		deckID, orgID, "Go Fundamentals",
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create deck")
	}

	questions := []struct {
		prompt  string
		options []string
		correct int
	}{
		{"Which keyword declares a new goroutine?", []string{"go", "async", "spawn", "thread"}, 0},
		{"What is the zero value of a slice?", []string{"an empty slice", "nil", "a panic", "undefined"}, 1},
		{"Which builtin grows a slice?", []string{"push", "extend", "append", "add"}, 2},
		{"How are errors conventionally returned?", []string{"via panic", "via errno", "via channels", "as the last return value"}, 3},
		{"Which statement receives from channel ch?", []string{"v := <-ch", "v := ch.recv()", "v = ch[0]", "recv(ch, &v)"}, 0},
		{"What does defer do?", []string{"starts a goroutine", "runs a call when the function returns", "yields the scheduler", "catches panics"}, 1},
		{"Which type is a string's element?", []string{"rune", "char", "byte", "int8"}, 2},
		{"What guards a map against concurrent writes?", []string{"nothing, maps are safe", "the GC", "the race detector", "a sync.Mutex"}, 3},
		{"Which tool formats Go source?", []string{"gofmt", "golint", "gopls", "godoc"}, 0},
		{"What closes over variables in Go?", []string{"interfaces", "closures", "structs", "channels"}, 1},
	}

	for i, q := range questions {
		opts, err := json.Marshal(q.options)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to marshal options")
		}
		_, err = pool.Exec(ctx,
			`INSERT INTO questions (id, deck_id, prompt, options, correct_index, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), deckID, q.prompt, opts, q.correct, i+1,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create question")
		}
	}

	assessment := &model.Assessment{
		ID:               uuid.New(),
		OrgID:            orgID,
		DeckID:           deckID,
		Title:            "Go Fundamentals Assessment",
		SkillDomain:      "golang",
		TimeLimitMinutes: 15,
		PassScore:        70,
		QuestionCount:    8,
		ShuffleQuestions: true,
		Status:           model.AssessmentStatusDraft,
	}
	assessmentRepo := repository.NewAssessmentRepository(pool, cfg.StoreTimeout)
	if err := assessmentRepo.Create(ctx, assessment); err != nil {
		log.Fatal().Err(err).Msg("Failed to create assessment")
	}
	if err := assessmentRepo.UpdateStatus(ctx, assessment.ID, model.AssessmentStatusPublished); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish assessment")
	}

	fmt.Printf("org_id:        %s\n", orgID)
	fmt.Printf("deck_id:       %s (%d questions)\n", deckID, len(questions))
	fmt.Printf("assessment_id: %s (published)\n", assessment.ID)
	fmt.Println("\nMint tokens with: go run ./cmd/mint-token -org", orgID)
}
