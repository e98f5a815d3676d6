package pg

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/rdsutils"
	"github.com/pkg/errors"

	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

// driverName is the New Relic instrumented pgx driver.
const driverName = "nrpgx"

type Config struct {
	User               string
	Host               string
	Password           string
	Port               int
	DbName             string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

func (c *Config) validate() error {
	if c.User == "" || c.Host == "" || c.DbName == "" {
		return errors.New("user, host and db name are required")
	}
	if c.Port <= 0 {
		return errors.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

func (c *Config) passwordDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DbName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// NewWithUsernameAndPassword opens a connection pool using password
// credentials.
func NewWithUsernameAndPassword(ctx context.Context, c Config) (*sql.DB, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	return open(ctx, c, c.passwordDSN())
}

// NewWithAwsIam opens a connection pool authenticated with an RDS IAM token
// in place of a password. Only provisioned Aurora clusters support this.
//
// https://docs.aws.amazon.com/AmazonRDS/latest/AuroraUserGuide/UsingWithRDS.IAMDBAuth.Connecting.Go.html
func NewWithAwsIam(ctx context.Context, c Config, awsConfig aws.Config) (*sql.DB, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	rdsClient := rds.New(awsConfig)

	endpoint := fmt.Sprintf("%s:%d", c.Host, c.Port)
	authToken, err := rdsutils.BuildAuthToken(endpoint, rdsClient.Region, c.User, rdsClient.Credentials)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build rds auth token")
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, authToken, c.DbName,
	)
	return open(ctx, c, dsn)
}

func open(ctx context.Context, c Config, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}

	if c.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(c.MaxOpenConnections)
	}
	if c.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(c.MaxIdleConnections)
	}
	if c.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping db")
	}

	return db, nil
}
