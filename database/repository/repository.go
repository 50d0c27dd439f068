package repository

import (
	casesRepo "courtwise/database/repository/cases"
	newsRepo "courtwise/database/repository/news"
	profileRepo "courtwise/database/repository/profile"
	usageRepo "courtwise/database/repository/usage"
)

// Re-export the ProfileRepository interface and constructor.
type ProfileRepository = profileRepo.ProfileRepository

var NewMongoProfileRepo = profileRepo.NewMongoProfileRepo

// Re-export the UsageRepository interface and constructor.
type UsageRepository = usageRepo.UsageRepository

var NewMongoUsageRepo = usageRepo.NewMongoUsageRepo

// Re-export the case catalogue and note repositories.
type CaseRepository = casesRepo.CaseRepository

type NoteRepository = casesRepo.NoteRepository

var (
	NewMongoCaseRepo = casesRepo.NewMongoCaseRepo
	NewMongoNoteRepo = casesRepo.NewMongoNoteRepo
)

// Re-export the NewsRepository interface and constructor.
type NewsRepository = newsRepo.NewsRepository

var NewMongoNewsRepo = newsRepo.NewMongoNewsRepo
