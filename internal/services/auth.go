package services

import (
  "context"
  "fmt"
  "strings"
  "time"

  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"
  "golang.org/x/crypto/bcrypt"
  "gorm.io/gorm"

  "github.com/courseloom/courseloom-backend/internal/logger"
  "github.com/courseloom/courseloom-backend/internal/repos"
  "github.com/courseloom/courseloom-backend/internal/requestdata"
  "github.com/courseloom/courseloom-backend/internal/types"
)

type JWTClaims struct {
  jwt.RegisteredClaims
}

type AuthService interface {
  RegisterUser(ctx context.Context, user *types.User) error
  LoginUser(ctx context.Context, email, password string) (string, string, error)
  RefreshUser(ctx context.Context) (string, string, error)
  LogoutUser(ctx context.Context) error
  SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
  GetAccessTTL() time.Duration
}

type authService struct {
  db            *gorm.DB
  log           *logger.Logger
  userRepo      repos.UserRepo
  userTokenRepo repos.UserTokenRepo
  jwtSecretKey  string
  accessTTL     time.Duration
  refreshTTL    time.Duration
}

func NewAuthService(
  db *gorm.DB,
  baseLog *logger.Logger,
  userRepo repos.UserRepo,
  userTokenRepo repos.UserTokenRepo,
  jwtSecretKey string,
  accessTTL time.Duration,
  refreshTTL time.Duration,
) AuthService {
  return &authService{
    db:            db,
    log:           baseLog.With("service", "AuthService"),
    userRepo:      userRepo,
    userTokenRepo: userTokenRepo,
    jwtSecretKey:  jwtSecretKey,
    accessTTL:     accessTTL,
    refreshTTL:    refreshTTL,
  }
}

func (as *authService) RegisterUser(ctx context.Context, user *types.User) error {
  user.Email = strings.ToLower(strings.TrimSpace(user.Email))
  if user.Email == "" || user.Password == "" {
    return fmt.Errorf("email and password are required")
  }

  existing, err := as.userRepo.GetByEmail(ctx, nil, user.Email)
  if err != nil {
    return fmt.Errorf("check existing user: %w", err)
  }
  if existing != nil {
    return fmt.Errorf("email already registered")
  }

  hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
  if err != nil {
    return fmt.Errorf("hash password: %w", err)
  }
  user.Password = string(hash)

  return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    user.ID = uuid.New()
    now := time.Now()
    user.CreatedAt = now
    user.UpdatedAt = now
    if _, err := as.userRepo.Create(ctx, tx, []*types.User{user}); err != nil {
      return fmt.Errorf("create user: %w", err)
    }
    return nil
  })
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
  email = strings.ToLower(strings.TrimSpace(email))

  user, err := as.userRepo.GetByEmail(ctx, nil, email)
  if err != nil {
    return "", "", fmt.Errorf("load user by email: %w", err)
  }
  if user == nil {
    return "", "", fmt.Errorf("invalid email or password")
  }
  if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
    return "", "", fmt.Errorf("invalid email or password")
  }

  var accessToken, refreshToken string
  if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if err := as.userTokenRepo.DeleteByUserID(ctx, tx, user.ID); err != nil {
      return fmt.Errorf("clear previous tokens: %w", err)
    }
    tok, err := as.generateAccessToken(user)
    if err != nil {
      return fmt.Errorf("generate access token: %w", err)
    }
    accessToken = tok
    refreshToken = uuid.New().String()
    userToken := types.UserToken{
      ID:           uuid.New(),
      UserID:       user.ID,
      AccessToken:  accessToken,
      RefreshToken: refreshToken,
      ExpiresAt:    time.Now().Add(as.refreshTTL),
    }
    if _, err := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&userToken}); err != nil {
      return fmt.Errorf("create user token: %w", err)
    }
    return nil
  }); err != nil {
    return "", "", err
  }
  return accessToken, refreshToken, nil
}

func (as *authService) RefreshUser(ctx context.Context) (string, string, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.RefreshToken == "" {
    return "", "", fmt.Errorf("no refresh token in request context")
  }

  var accessToken, newRefreshToken string
  err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    existing, err := as.userTokenRepo.GetByRefreshToken(ctx, tx, rd.RefreshToken)
    if err != nil {
      return fmt.Errorf("load refresh token: %w", err)
    }
    if existing == nil {
      return fmt.Errorf("unknown refresh token")
    }
    if existing.ExpiresAt.Before(time.Now()) {
      if err := as.userTokenRepo.DeleteByUserID(ctx, tx, existing.UserID); err != nil {
        as.log.Warn("Failed to delete expired token", "error", err)
      }
      return fmt.Errorf("refresh token expired")
    }

    users, err := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{existing.UserID})
    if err != nil {
      return fmt.Errorf("load user for refresh: %w", err)
    }
    if len(users) == 0 || users[0] == nil {
      return fmt.Errorf("no user for refresh token")
    }
    user := users[0]

    tok, err := as.generateAccessToken(user)
    if err != nil {
      return fmt.Errorf("generate access token: %w", err)
    }
    accessToken = tok
    newRefreshToken = uuid.New().String()

    if err := as.userTokenRepo.DeleteByUserID(ctx, tx, user.ID); err != nil {
      return fmt.Errorf("rotate tokens: %w", err)
    }
    userToken := types.UserToken{
      ID:           uuid.New(),
      UserID:       user.ID,
      AccessToken:  accessToken,
      RefreshToken: newRefreshToken,
      ExpiresAt:    time.Now().Add(as.refreshTTL),
    }
    if _, err := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&userToken}); err != nil {
      return fmt.Errorf("create rotated token: %w", err)
    }
    return nil
  })
  if err != nil {
    return "", "", err
  }
  return accessToken, newRefreshToken, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.TokenString == "" {
    return fmt.Errorf("no access token in request context")
  }
  return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    found, err := as.userTokenRepo.GetByAccessToken(ctx, tx, rd.TokenString)
    if err != nil {
      return fmt.Errorf("load user token: %w", err)
    }
    if found == nil {
      return nil
    }
    return as.userTokenRepo.DeleteByUserID(ctx, tx, found.UserID)
  })
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
  claims := JWTClaims{
    RegisteredClaims: jwt.RegisteredClaims{
      Subject:   user.ID.String(),
      ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
      IssuedAt:  jwt.NewNumericDate(time.Now()),
    },
  }
  token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
  return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
  if tokenString == "" {
    return ctx, nil
  }
  parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
    return []byte(as.jwtSecretKey), nil
  })
  if err != nil {
    return ctx, fmt.Errorf("parse token: %w", err)
  }
  claims, ok := parsedToken.Claims.(*JWTClaims)
  if !ok || !parsedToken.Valid {
    return ctx, fmt.Errorf("invalid or expired token")
  }
  userID, err := uuid.Parse(claims.Subject)
  if err != nil {
    return ctx, fmt.Errorf("invalid user id in token: %w", err)
  }

  found, err := as.userTokenRepo.GetByAccessToken(ctx, nil, tokenString)
  if err != nil {
    return ctx, fmt.Errorf("load user token: %w", err)
  }
  if found == nil {
    return ctx, fmt.Errorf("token not recognized")
  }

  rd := &requestdata.RequestData{
    TokenString:  tokenString,
    RefreshToken: found.RefreshToken,
    UserID:       userID,
  }
  return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
  return as.accessTTL
}
