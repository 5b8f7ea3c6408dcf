package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	Port             string
	Env              string // either prod or dev, dev disables https redirects and secure cookies
	MongoURI         string
	MongoDatabase    string
	SessionKey       []byte
	JwtSigningKey    []byte
	AllowedOrigins   []string // origins allowed to send credentialed requests
	SparkPostAPIKey  string   // when empty in dev, emails are logged instead of sent
	SparkPostBaseURL string
	NoReplyEmail     string // used for transactional emails
	SiteName         string
	SiteHost         string
	SentryDSN        string
	ResumeBucket     string // S3 bucket for resumes, GridFS is used when empty
	AWSRegion        string
	URLProtocol      string
}

// LoadConfig reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "unable to load .env file")
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	env := strings.ToLower(os.Getenv("ENV"))
	if env == "" {
		env = "dev"
	}
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		return Config{}, fmt.Errorf("MONGODB_URI cannot be empty")
	}
	mongoDatabase := os.Getenv("MONGODB_DATABASE")
	if mongoDatabase == "" {
		mongoDatabase = "rozgar"
	}
	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET cannot be empty")
	}
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		return Config{}, fmt.Errorf("JWT_SIGNING_KEY cannot be empty")
	}
	jwtSigningKeyBytes, err := base64.StdEncoding.DecodeString(jwtSigningKey)
	if err != nil {
		return Config{}, errors.Wrapf(err, "unable to decode jwt signing key to bytes")
	}
	allowedOrigins := []string{"http://localhost:5173"}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		allowedOrigins = allowedOrigins[:0]
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
		if len(allowedOrigins) == 0 {
			return Config{}, fmt.Errorf("ALLOWED_ORIGINS cannot be empty")
		}
	}
	sparkPostAPIKey := os.Getenv("SPARKPOST_API_KEY")
	if sparkPostAPIKey == "" && env != "dev" {
		return Config{}, fmt.Errorf("SPARKPOST_API_KEY cannot be empty")
	}
	sparkPostBaseURL := os.Getenv("SPARKPOST_BASE_URL")
	if sparkPostBaseURL == "" {
		sparkPostBaseURL = "https://api.sparkpost.com"
	}
	siteName := os.Getenv("SITE_NAME")
	if siteName == "" {
		siteName = "Rozgar"
	}
	siteHost := os.Getenv("SITE_HOST")
	if siteHost == "" {
		siteHost = "localhost:" + port
	}
	noReplyEmail := os.Getenv("NO_REPLY_EMAIL")
	if noReplyEmail == "" {
		noReplyEmail = "no-reply@" + strings.Split(siteHost, ":")[0]
	}
	awsRegion := os.Getenv("AWS_REGION")
	if awsRegion == "" {
		awsRegion = "ap-south-1"
	}
	urlProtocol := "http://"
	if !strings.EqualFold(env, "dev") {
		urlProtocol = "https://"
	}

	return Config{
		Port:             port,
		Env:              env,
		MongoURI:         mongoURI,
		MongoDatabase:    mongoDatabase,
		SessionKey:       []byte(sessionSecret),
		JwtSigningKey:    jwtSigningKeyBytes,
		AllowedOrigins:   allowedOrigins,
		SparkPostAPIKey:  sparkPostAPIKey,
		SparkPostBaseURL: sparkPostBaseURL,
		NoReplyEmail:     noReplyEmail,
		SiteName:         siteName,
		SiteHost:         siteHost,
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		ResumeBucket:     os.Getenv("RESUME_BUCKET"),
		AWSRegion:        awsRegion,
		URLProtocol:      urlProtocol,
	}, nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev"
}
