// Command seed loads a JSON case catalogue into MongoDB.
//
//	go run ./seed -file cases.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"
	"time"

	"courtwise/config"
	"courtwise/database"
	casesRepo "courtwise/database/repository/cases"
	"courtwise/models"
	"courtwise/utils"

	"go.uber.org/zap"
)

func main() {
	file := flag.String("file", "cases.json", "path to a JSON array of cases")
	flag.Parse()

	config.LoadConfig()
	logger := utils.GetLogger()

	raw, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatal("Failed to read catalogue", zap.String("file", *file), zap.Error(err))
	}
	var catalogue []models.Case
	if err := json.Unmarshal(raw, &catalogue); err != nil {
		logger.Fatal("Failed to parse catalogue", zap.String("file", *file), zap.Error(err))
	}

	valid := catalogue[:0]
	for _, c := range catalogue {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" || strings.TrimSpace(c.Title) == "" {
			logger.Warn("Skipping case without id or title", zap.String("title", c.Title))
			continue
		}
		valid = append(valid, c)
	}

	database.InitDB()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer database.Disconnect(ctx)

	repo := casesRepo.NewMongoCaseRepo(database.Database(), logger)
	if err := repo.Upsert(ctx, valid); err != nil {
		logger.Fatal("Failed to seed catalogue", zap.Error(err))
	}
	logger.Info("Seeded case catalogue", zap.Int("cases", len(valid)), zap.Int("skipped", len(catalogue)-len(valid)))
}
