package protocal

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ssec-chat/configs"
	httpAdapter "ssec-chat/internal/adapters/input/http"
	"ssec-chat/internal/adapters/output/gemini"
	"ssec-chat/internal/adapters/output/markdown"
	"ssec-chat/internal/adapters/output/memory"
	"ssec-chat/internal/adapters/output/network"
	"ssec-chat/internal/adapters/output/openai"
	"ssec-chat/internal/adapters/output/postgres"
	"ssec-chat/internal/application"
	"ssec-chat/internal/domain"
	"ssec-chat/internal/ports/output"
	"ssec-chat/pkg/database_driver/gorm"

	swagger "github.com/arsmn/fiber-swagger/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

type config struct {
	ENV string `mapstructure:"env"`
}

// ServeHTTP func
func ServeHTTP() error {
	var cfg config
	flag.StringVar(&cfg.ENV, "env", "", "the environment to use")
	flag.Parse()
	configs.InitViper("./configs", cfg.ENV)
	conf := configs.GetViper()
	setupLogger(conf.App)
	logrus.Info(conf.Env)

	app := fiber.New(fiber.Config{
		AppName:               "ssec-chat",
		DisableStartupMessage: !conf.App.Debug,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept,Authorization",
	}))

	// Output adapter (exchange ledger)
	var recorder output.ExchangeRecorder = memory.NoopRecorder{}
	var healthChecker httpAdapter.HealthChecker
	var dbConGorm *gorm.DB
	if conf.Postgres.Enabled {
		var err error
		dbConGorm, err = gorm.ConnectToPostgreSQL(
			conf.Postgres.Host,
			conf.Postgres.Port,
			conf.Postgres.Username,
			conf.Postgres.Password,
			conf.Postgres.DbName,
			conf.Postgres.SSLMode,
		)
		if err != nil {
			return err
		}
		repo, err := postgres.NewExchangeRepository(dbConGorm.Postgres)
		if err != nil {
			return err
		}
		recorder = repo
		healthChecker = repo
	}

	// Output adapter (model provider)
	provider, err := newModelProvider(conf)
	if err != nil {
		return err
	}
	logrus.Infof("Using %s provider with model %s", provider.Name(), provider.Model())

	credentials := memory.NewCredentialStore(conf.APIKey())
	if conf.KeyOptional() {
		credentials = memory.NewOptionalCredentialStore(conf.APIKey())
	}

	// Application service (use case)
	srv := application.NewConversationService(
		provider,
		memory.NewTranscriptStore(),
		credentials,
		network.NewProbe(conf.Network),
		recorder,
		application.ConversationSettings{
			SystemPrompt: conf.Provider.SystemPrompt,
			Timestamps:   domain.NewTimestampFormatter(conf.App.TimestampLayout, conf.App.Timezone),
		},
	)
	status := srv.Initialize(context.Background())
	logrus.Infof("Conversation state at startup: %s", status.State)

	// Input adapter (HTTP handler)
	hdl := httpAdapter.New(srv, markdown.NewRenderer(), healthChecker, httpAdapter.Settings{
		SendRate:  conf.App.SendRate,
		SendBurst: conf.App.SendBurst,
	})

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range c {
			log.Println("Gracefull shut down ...")
			hdl.Close()
			if dbConGorm != nil {
				gorm.DisconnectPostgres(dbConGorm.Postgres)
			}
			err := app.ShutdownWithTimeout(10 * time.Second)
			if err != nil {
				log.Println("Error when shutdown server: ", err)
			}
		}
	}()

	app.Get("/", hdl.Index)
	app.Get("/swagger/*", swagger.HandlerDefault) // default
	app.Get("/health", hdl.HealthCheck)

	chat := app.Group("/v1/api")
	{
		chat.Get("/status", hdl.GetStatus)
		chat.Get("/transcript", hdl.GetTranscript)
		chat.Get("/events", hdl.StreamEvents)
		chat.Post("/chat", hdl.SendMessage)
		chat.Post("/credential", hdl.SelectCredential)
	}

	logrus.Println("Listerning on port: ", conf.App.Port)
	return app.Listen(":" + conf.App.Port)
}

func newModelProvider(conf *configs.Config) (output.ModelProvider, error) {
	switch strings.ToLower(conf.Provider.Kind) {
	case "", configs.ProviderKindGemini:
		return gemini.NewGeminiClientAdapter(conf.Gemini), nil
	case configs.ProviderKindOpenAI:
		return openai.NewOpenAIClientAdapter(conf.OpenAI), nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, conf.Provider.Kind)
	}
}

func setupLogger(app configs.App) {
	if app.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if app.Env != "" && app.Env != "local" {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	}
}
