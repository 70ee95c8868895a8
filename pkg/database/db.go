package data

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"github.com/tacusci/logging/v2"
	"github.com/tauraamui/archbooth/pkg/database/dbconn"
	"github.com/tauraamui/archbooth/pkg/database/models"
	"github.com/tauraamui/archbooth/pkg/database/repos"
	"github.com/tauraamui/archbooth/pkg/log"
	"github.com/tauraamui/xerror"
	"golang.org/x/term"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	vendorName       = "tacusci"
	appName          = "archbooth"
	databaseFileName = "ab.db"
)

var (
	ErrCreateDBFile    = xerror.New("unable to create database file")
	ErrDBAlreadyExists = xerror.New("database file already exists")
)

var uc = os.UserCacheDir
var fs = afero.NewOsFs()
var plainPromptReader plainReader = stdinPlainReader{readFrom: os.Stdin}
var passwordPromptReader passwordReader = stdinPasswordReader{}

type plainReader interface {
	ReadPlain(promptText string) (string, error)
}

type passwordReader interface {
	ReadPassword(promptText string) ([]byte, error)
}

type stdinPlainReader struct {
	readFrom io.Reader
}

func (s stdinPlainReader) ReadPlain(promptText string) (string, error) {
	if len(promptText) > 0 {
		fmt.Printf("%s: ", promptText)
	}
	stdinReader := bufio.NewReader(s.readFrom)
	value, err := stdinReader.ReadString('\n')
	return strings.TrimSpace(value), err
}

type stdinPasswordReader struct{}

func (s stdinPasswordReader) ReadPassword(promptText string) ([]byte, error) {
	if len(promptText) > 0 {
		fmt.Printf("%s: ", promptText)
	}
	return term.ReadPassword(int(syscall.Stdin))
}

// Setup creates the kiosk database and optionally stores the token
// used to authenticate recording uploads.
func Setup() error {
	log.Info("Creating database file...") //nolint

	if err := createFile(); err != nil {
		return err
	}

	db, err := Connect()
	if err != nil {
		return err
	}

	if logging.CurrentLoggingLevel != logging.SilentLevel {
		fmt.Println("Please enter the upload service token, leave blank to skip...")
	}
	token, err := askForToken(0)
	if err != nil {
		return xerror.Errorf("failed to prompt for upload token: %w", err)
	}
	if len(token) == 0 {
		log.Info("No upload token stored") //nolint
		return nil
	}

	if err := storeUploadToken(db, token); err != nil {
		return xerror.Errorf("unable to store upload token: %w", err)
	}

	log.Info("Stored upload token") //nolint

	return nil
}

func Destroy() error {
	dbFilePath, err := resolveDBPath(uc)
	if err != nil {
		return xerror.Errorf("unable to delete database file: %w", err)
	}

	return fs.Remove(dbFilePath)
}

func Connect() (dbconn.GormWrapper, error) {
	dbPath, err := resolveDBPath(uc)
	if err != nil {
		return nil, err
	}

	log.Debug("Connecting to DB: %s", dbPath) //nolint
	db, err := openDBConnection(dbPath)
	if err != nil {
		return nil, xerror.Errorf("unable to open db connection: %w", err)
	}

	err = models.AutoMigrate(db)
	if err != nil {
		return nil, xerror.Errorf("unable to run automigrations: %w", err)
	}

	return db, nil
}

// UploadToken returns the token stored during setup, or an empty
// string when none was given.
func UploadToken(db dbconn.GormWrapper) string {
	repo := repos.CredentialRepository{DB: db}
	credential, err := repo.FindByName(models.UploadTokenCredential)
	if err != nil {
		log.Debug("No stored upload token: %v", err) //nolint
		return ""
	}
	return credential.Value
}

var openDBConnection = func(path string) (dbconn.GormWrapper, error) {
	logger := logger.New(nil, logger.Config{LogLevel: logger.Silent})
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger})
	if err != nil {
		return nil, err
	}
	return dbconn.Wrap(db), nil
}

func storeUploadToken(db dbconn.GormWrapper, token string) error {
	credentialRepo := repos.CredentialRepository{DB: db}
	return credentialRepo.Create(&models.Credential{
		Name:  models.UploadTokenCredential,
		Value: token,
	})
}

func resolveDBPath(uc func() (string, error)) (string, error) {
	databasePath := os.Getenv("ARCHBOOTH_DB")
	if len(databasePath) > 0 {
		return databasePath, nil
	}

	databaseParentDir, err := uc()
	if err != nil {
		return "", xerror.Errorf("unable to resolve %s database file location: %w", databaseFileName, err)
	}

	return filepath.Join(
		databaseParentDir,
		vendorName,
		appName,
		databaseFileName), nil
}

func createFile() error {
	path, err := resolveDBPath(uc)
	if err != nil {
		return err
	}

	if _, err := fs.Stat(path); errors.Is(err, os.ErrNotExist) {
		fs.MkdirAll(filepath.Dir(path), os.ModeDir|os.ModePerm) //nolint

		f, err := fs.Create(path)
		if err != nil {
			return xerror.Errorf("%v: %w", ErrCreateDBFile, err)
		}
		f.Close()
		return nil
	}

	return xerror.Errorf("%w: %s", ErrDBAlreadyExists, path)
}

func askForToken(attempts int) (string, error) {
	token, err := promptForValueEchoOff("Upload token")
	if err != nil {
		return "", xerror.Errorf("unable to prompt for upload token: %w", err)
	}
	if len(token) == 0 {
		return "", nil
	}

	repeatedToken, err := promptForValueEchoOff("Repeat upload token")
	if err != nil {
		return "", xerror.Errorf("unable to prompt for upload token: %w", err)
	}

	if strings.Compare(token, repeatedToken) != 0 {
		if logging.CurrentLoggingLevel != logging.SilentLevel {
			fmt.Println("Entered tokens do not match... Try again...")
		}
		attempts++
		if attempts >= 3 {
			return "", xerror.New("tried entering upload token at least 3 times")
		}
		return askForToken(attempts)
	}

	return token, nil
}

// PromptForValue reads a line from the setup prompt.
func PromptForValue(promptText string) (string, error) {
	value, err := plainPromptReader.ReadPlain(promptText)
	if err != nil && !(errors.Is(err, io.EOF) && len(value) > 0) {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func promptForValueEchoOff(promptText string) (string, error) {
	valueBytes, err := passwordPromptReader.ReadPassword(promptText)
	if err != nil {
		return "", err
	}
	if logging.CurrentLoggingLevel != logging.SilentLevel {
		fmt.Println("")
	}
	return strings.TrimSpace(string(valueBytes)), nil
}
