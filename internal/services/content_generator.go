package services

import (
  "context"
  "fmt"
  "strings"

  "github.com/courseloom/courseloom-backend/internal/logger"
)

// OutlineItem is one entry of a generated chapter or lesson outline.
type OutlineItem struct {
  Title       string
  Description string
}

// ActivityDraft is one generated activity before persistence.
type ActivityDraft struct {
  Title string
  Kind  string
  Body  map[string]any
}

// ContentGenerator maps generation steps onto the underlying model client.
// Each method is one retryable unit of generated content; failures are
// transient from the workflow's point of view.
type ContentGenerator interface {
  CourseDescription(ctx context.Context, topic, language string) (string, error)
  AlternativeTitles(ctx context.Context, topic, language string, n int) ([]string, error)
  Categories(ctx context.Context, topic, language string, n int) ([]string, error)
  ChapterOutline(ctx context.Context, topic, language string, n int) ([]OutlineItem, error)
  ChapterDescription(ctx context.Context, topic, chapterTitle, language string) (string, error)
  LessonOutline(ctx context.Context, topic, chapterTitle, language string, n int) ([]OutlineItem, error)
  LessonDescription(ctx context.Context, topic, chapterTitle, lessonTitle, language string) (string, error)
  Activities(ctx context.Context, topic, chapterTitle, lessonTitle, language string, n int) ([]ActivityDraft, error)
  CoverImage(ctx context.Context, topic string) ([]byte, error)
}

type contentGenerator struct {
  log *logger.Logger
  ai  OpenAIClient
}

func NewContentGenerator(baseLog *logger.Logger, ai OpenAIClient) ContentGenerator {
  return &contentGenerator{
    log: baseLog.With("service", "ContentGenerator"),
    ai:  ai,
  }
}

func (g *contentGenerator) CourseDescription(ctx context.Context, topic, language string) (string, error) {
  schema := map[string]any{
    "type": "object",
    "properties": map[string]any{
      "description": map[string]any{"type": "string"},
    },
    "required":             []string{"description"},
    "additionalProperties": false,
  }
  out, err := g.ai.GenerateJSON(ctx,
    "You write concise, inviting one-paragraph course descriptions.",
    fmt.Sprintf("Course topic: %s\nLanguage: %s\n\nWrite the course description in that language.", topic, language),
    "course_description",
    schema,
  )
  if err != nil {
    return "", err
  }
  desc := strings.TrimSpace(fmt.Sprint(out["description"]))
  if desc == "" {
    return "", fmt.Errorf("empty course description")
  }
  return desc, nil
}

func (g *contentGenerator) AlternativeTitles(ctx context.Context, topic, language string, n int) ([]string, error) {
  schema := map[string]any{
    "type": "object",
    "properties": map[string]any{
      "titles": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
    },
    "required":             []string{"titles"},
    "additionalProperties": false,
  }
  out, err := g.ai.GenerateJSON(ctx,
    "You suggest alternative names a learner might search a course under.",
    fmt.Sprintf("Course topic: %s\nLanguage: %s\n\nSuggest %d alternative titles.", topic, language, n),
    "course_alternative_titles",
    schema,
  )
  if err != nil {
    return nil, err
  }
  titles := toStringSlice(out["titles"])
  if len(titles) == 0 {
    return nil, fmt.Errorf("no alternative titles returned")
  }
  return titles, nil
}

func (g *contentGenerator) Categories(ctx context.Context, topic, language string, n int) ([]string, error) {
  schema := map[string]any{
    "type": "object",
    "properties": map[string]any{
      "categories": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
    },
    "required":             []string{"categories"},
    "additionalProperties": false,
  }
  out, err := g.ai.GenerateJSON(ctx,
    "You classify courses into short, broad subject categories.",
    fmt.Sprintf("Course topic: %s\nLanguage: %s\n\nReturn up to %d categories.", topic, language, n),
    "course_categories",
    schema,
  )
  if err != nil {
    return nil, err
  }
  categories := toStringSlice(out["categories"])
  if len(categories) == 0 {
    return nil, fmt.Errorf("no categories returned")
  }
  if len(categories) > n {
    categories = categories[:n]
  }
  return categories, nil
}

func outlineSchema() map[string]any {
  return map[string]any{
    "type": "object",
    "properties": map[string]any{
      "items": map[string]any{
        "type": "array",
        "items": map[string]any{
          "type": "object",
          "properties": map[string]any{
            "title":       map[string]any{"type": "string"},
            "description": map[string]any{"type": "string"},
          },
          "required":             []string{"title", "description"},
          "additionalProperties": false,
        },
      },
    },
    "required":             []string{"items"},
    "additionalProperties": false,
  }
}

func (g *contentGenerator) ChapterOutline(ctx context.Context, topic, language string, n int) ([]OutlineItem, error) {
  out, err := g.ai.GenerateJSON(ctx,
    "You design coherent course outlines that build from fundamentals to advanced material.",
    fmt.Sprintf("Course topic: %s\nLanguage: %s\n\nCreate %d chapters in teaching order. Keep titles specific.", topic, language, n),
    "chapter_outline",
    outlineSchema(),
  )
  if err != nil {
    return nil, err
  }
  return parseOutline(out)
}

func (g *contentGenerator) ChapterDescription(ctx context.Context, topic, chapterTitle, language string) (string, error) {
  schema := map[string]any{
    "type": "object",
    "properties": map[string]any{
      "description": map[string]any{"type": "string"},
    },
    "required":             []string{"description"},
    "additionalProperties": false,
  }
  out, err := g.ai.GenerateJSON(ctx,
    "You write short chapter introductions for a course.",
    fmt.Sprintf("Course topic: %s\nChapter: %s\nLanguage: %s\n\nWrite a two-sentence chapter description.", topic, chapterTitle, language),
    "chapter_description",
    schema,
  )
  if err != nil {
    return "", err
  }
  desc := strings.TrimSpace(fmt.Sprint(out["description"]))
  if desc == "" {
    return "", fmt.Errorf("empty chapter description")
  }
  return desc, nil
}

func (g *contentGenerator) LessonOutline(ctx context.Context, topic, chapterTitle, language string, n int) ([]OutlineItem, error) {
  out, err := g.ai.GenerateJSON(ctx,
    "You break a course chapter into focused lessons.",
    fmt.Sprintf("Course topic: %s\nChapter: %s\nLanguage: %s\n\nCreate %d lessons in teaching order.", topic, chapterTitle, language, n),
    "lesson_outline",
    outlineSchema(),
  )
  if err != nil {
    return nil, err
  }
  return parseOutline(out)
}

func (g *contentGenerator) LessonDescription(ctx context.Context, topic, chapterTitle, lessonTitle, language string) (string, error) {
  schema := map[string]any{
    "type": "object",
    "properties": map[string]any{
      "description": map[string]any{"type": "string"},
    },
    "required":             []string{"description"},
    "additionalProperties": false,
  }
  out, err := g.ai.GenerateJSON(ctx,
    "You write one-sentence lesson summaries.",
    fmt.Sprintf("Course topic: %s\nChapter: %s\nLesson: %s\nLanguage: %s\n\nWrite the lesson summary.", topic, chapterTitle, lessonTitle, language),
    "lesson_description",
    schema,
  )
  if err != nil {
    return "", err
  }
  desc := strings.TrimSpace(fmt.Sprint(out["description"]))
  if desc == "" {
    return "", fmt.Errorf("empty lesson description")
  }
  return desc, nil
}

func (g *contentGenerator) Activities(ctx context.Context, topic, chapterTitle, lessonTitle, language string, n int) ([]ActivityDraft, error) {
  schema := map[string]any{
    "type": "object",
    "properties": map[string]any{
      "activities": map[string]any{
        "type": "array",
        "items": map[string]any{
          "type": "object",
          "properties": map[string]any{
            "title":   map[string]any{"type": "string"},
            "kind":    map[string]any{"type": "string", "enum": []string{"reading", "quiz"}},
            "body_md": map[string]any{"type": "string"},
            "questions": map[string]any{
              "type": "array",
              "items": map[string]any{
                "type": "object",
                "properties": map[string]any{
                  "prompt":        map[string]any{"type": "string"},
                  "options":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
                  "correct_index": map[string]any{"type": "integer"},
                  "explanation":   map[string]any{"type": "string"},
                },
                "required":             []string{"prompt", "options", "correct_index", "explanation"},
                "additionalProperties": false,
              },
            },
          },
          "required":             []string{"title", "kind", "body_md", "questions"},
          "additionalProperties": false,
        },
      },
    },
    "required":             []string{"activities"},
    "additionalProperties": false,
  }
  out, err := g.ai.GenerateJSON(ctx,
    "You create lesson activities: readings with well-structured markdown, and fair multiple-choice quizzes grounded in the lesson. Quizzes use 4 options each.",
    fmt.Sprintf("Course topic: %s\nChapter: %s\nLesson: %s\nLanguage: %s\n\nCreate %d activities, mixing reading and quiz kinds.", topic, chapterTitle, lessonTitle, language, n),
    "lesson_activities",
    schema,
  )
  if err != nil {
    return nil, err
  }

  rawItems, ok := out["activities"].([]any)
  if !ok || len(rawItems) == 0 {
    return nil, fmt.Errorf("no activities returned")
  }

  drafts := make([]ActivityDraft, 0, len(rawItems))
  for _, raw := range rawItems {
    m, ok := raw.(map[string]any)
    if !ok {
      continue
    }
    kind := fmt.Sprint(m["kind"])
    if kind != "reading" && kind != "quiz" {
      kind = "reading"
    }
    body := map[string]any{"body_md": fmt.Sprint(m["body_md"])}
    if kind == "quiz" {
      body["questions"] = m["questions"]
    }
    drafts = append(drafts, ActivityDraft{
      Title: strings.TrimSpace(fmt.Sprint(m["title"])),
      Kind:  kind,
      Body:  body,
    })
  }
  if len(drafts) == 0 {
    return nil, fmt.Errorf("activities payload unusable")
  }
  return drafts, nil
}

func (g *contentGenerator) CoverImage(ctx context.Context, topic string) ([]byte, error) {
  prompt := fmt.Sprintf("A clean, flat illustration that represents the subject %q. No text, soft colors, suitable as a course cover.", topic)
  return g.ai.GenerateImage(ctx, prompt)
}

func parseOutline(out map[string]any) ([]OutlineItem, error) {
  rawItems, ok := out["items"].([]any)
  if !ok || len(rawItems) == 0 {
    return nil, fmt.Errorf("no outline items returned")
  }
  items := make([]OutlineItem, 0, len(rawItems))
  for _, raw := range rawItems {
    m, ok := raw.(map[string]any)
    if !ok {
      continue
    }
    title := strings.TrimSpace(fmt.Sprint(m["title"]))
    if title == "" {
      continue
    }
    items = append(items, OutlineItem{
      Title:       title,
      Description: strings.TrimSpace(fmt.Sprint(m["description"])),
    })
  }
  if len(items) == 0 {
    return nil, fmt.Errorf("outline payload unusable")
  }
  return items, nil
}

// ---- helpers ----

func toStringSlice(v any) []string {
  if v == nil {
    return []string{}
  }
  a, ok := v.([]any)
  if !ok {
    if ss, ok2 := v.([]string); ok2 {
      return ss
    }
    return []string{}
  }
  out := make([]string, 0, len(a))
  for _, x := range a {
    s := strings.TrimSpace(fmt.Sprint(x))
    if s != "" {
      out = append(out, s)
    }
  }
  return out
}
