package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/skillbase/skillbase-backend/internal/auth"
	"github.com/skillbase/skillbase-backend/internal/config"
)

// Mints a JWT for local development and testing. Identity management lives
// upstream; this stands in for it against a local stack.
func main() {
	var (
		userFlag string
		orgFlag  string
		roleFlag string
	)
	flag.StringVar(&userFlag, "user", "", "User ID (default: random)")
	flag.StringVar(&orgFlag, "org", "", "Organization ID (default: random)")
	flag.StringVar(&roleFlag, "role", "candidate", "Role: candidate or org_admin")
	flag.Parse()

	cfg := config.Load()

	role := auth.Role(roleFlag)
	if role != auth.RoleCandidate && role != auth.RoleOrgAdmin {
		log.Fatalf("Invalid role %q: want candidate or org_admin", roleFlag)
	}

	actor := auth.Actor{
		UserID: uuid.New(),
		OrgID:  uuid.New(),
		Role:   role,
	}
	if userFlag != "" {
		id, err := uuid.Parse(userFlag)
		if err != nil {
			log.Fatalf("Invalid user ID: %v", err)
		}
		actor.UserID = id
	}
	if orgFlag != "" {
		id, err := uuid.Parse(orgFlag)
		if err != nil {
			log.Fatalf("Invalid org ID: %v", err)
		}
		actor.OrgID = id
	}

	token, err := auth.NewVerifier(cfg.JWTSecret).Mint(actor, cfg.JWTExpiry)
	if err != nil {
		log.Fatalf("Mint failed: %v", err)
	}

	fmt.Printf("user_id: %s\norg_id:  %s\nrole:    %s\n\n%s\n", actor.UserID, actor.OrgID, actor.Role, token)
}
