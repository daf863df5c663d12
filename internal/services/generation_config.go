package services

import (
  "fmt"
  "os"
  "strings"

  "gopkg.in/yaml.v3"

  "github.com/courseloom/courseloom-backend/internal/logger"
)

// GenerationConfig tunes how much content each workflow asks the model for.
// Loaded once at startup from GENERATION_CONFIG_PATH when set.
type GenerationConfig struct {
  ChapterCount          int `yaml:"chapter_count"`
  LessonCount           int `yaml:"lesson_count"`
  ActivityCount         int `yaml:"activity_count"`
  AlternativeTitleCount int `yaml:"alternative_title_count"`
  CategoryCount         int `yaml:"category_count"`
}

func DefaultGenerationConfig() GenerationConfig {
  return GenerationConfig{
    ChapterCount:          5,
    LessonCount:           4,
    ActivityCount:         4,
    AlternativeTitleCount: 5,
    CategoryCount:         3,
  }
}

func LoadGenerationConfig(log *logger.Logger) GenerationConfig {
  cfg := DefaultGenerationConfig()

  path := strings.TrimSpace(os.Getenv("GENERATION_CONFIG_PATH"))
  if path == "" {
    return cfg
  }

  raw, err := os.ReadFile(path)
  if err != nil {
    if log != nil {
      log.Warn("Could not read generation config, using defaults", "path", path, "error", err)
    }
    return cfg
  }
  if err := yaml.Unmarshal(raw, &cfg); err != nil {
    if log != nil {
      log.Warn("Could not parse generation config, using defaults", "path", path, "error", err)
    }
    return DefaultGenerationConfig()
  }

  if err := cfg.validate(); err != nil {
    if log != nil {
      log.Warn("Generation config invalid, using defaults", "path", path, "error", err)
    }
    return DefaultGenerationConfig()
  }
  if log != nil {
    log.Info("Loaded generation config", "path", path)
  }
  return cfg
}

func (c GenerationConfig) validate() error {
  if c.ChapterCount < 1 || c.ChapterCount > 20 {
    return fmt.Errorf("chapter_count out of range: %d", c.ChapterCount)
  }
  if c.LessonCount < 1 || c.LessonCount > 20 {
    return fmt.Errorf("lesson_count out of range: %d", c.LessonCount)
  }
  if c.ActivityCount < 1 || c.ActivityCount > 20 {
    return fmt.Errorf("activity_count out of range: %d", c.ActivityCount)
  }
  if c.AlternativeTitleCount < 0 || c.AlternativeTitleCount > 20 {
    return fmt.Errorf("alternative_title_count out of range: %d", c.AlternativeTitleCount)
  }
  if c.CategoryCount < 0 || c.CategoryCount > 10 {
    return fmt.Errorf("category_count out of range: %d", c.CategoryCount)
  }
  return nil
}
