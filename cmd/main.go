package main

import (
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"

	"generate-video-pipeline/application/services"
	"generate-video-pipeline/config"
	"generate-video-pipeline/infrastructure/adapters"
	"generate-video-pipeline/infrastructure/gin_interface/controllers"
	"generate-video-pipeline/middleware"
	mockbackend "generate-video-pipeline/mock"
)

func main() {
	sess := session.Must(session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}))

	llmConfig, err := config.GetLlmConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get llm config")
	}

	imageServiceConfig, err := config.GetImageServiceConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get image service config")
	}

	videoServiceConfig, err := config.GetVideoServiceConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get video service config")
	}

	s3Config, err := config.GetS3Config()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get s3 config")
	}

	dynamoConfig, err := config.GetDynamoConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get dynamo config")
	}

	authConfig, err := config.NewAuthorizerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get authorizer config")
	}

	imagePollerConfig, err := config.GetImagePollerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get image poller config")
	}

	videoPollerConfig, err := config.GetVideoPollerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get video poller config")
	}

	pipelineConfig, err := config.GetPipelineConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get pipeline config")
	}

	jwksUrl := os.Getenv("JWKS_URL")
	if jwksUrl == "" {
		log.Fatal().Msg("JWKS_URL is not set!")
	}

	zeroLogger := adapters.NewZerologWrapper()

	panicHandler := func(p interface{}) {
		zeroLogger.Error(fmt.Errorf("%v", p), "Panic in worker pool")
	}

	workerPool, err := ants.NewPool(120, ants.WithPanicHandler(panicHandler))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create worker pool")
	}
	defer workerPool.Release()

	s3Client := s3.New(sess)
	dynamoClient := dynamodb.New(sess)

	contentFetcher := adapters.NewContentFetcher(zeroLogger)
	authorizer := adapters.NewCognitoAuthorizer(zeroLogger, authConfig)

	scriptDecomposer := adapters.NewLlmScriptDecomposer(llmConfig, zeroLogger)
	imageJobService := adapters.NewImageJobService(contentFetcher, authorizer, imageServiceConfig, zeroLogger)
	videoJobService := adapters.NewVideoJobService(contentFetcher, authorizer, videoServiceConfig, zeroLogger)

	runRepository := adapters.NewDynamoRunRepository(zeroLogger, dynamoClient, dynamoConfig)
	draftStore := adapters.NewDynamoDraftStore(zeroLogger, dynamoClient, dynamoConfig)
	textStore := adapters.NewDynamoTextStore(zeroLogger, dynamoClient, dynamoConfig)
	blobStore := adapters.NewS3BlobStore(zeroLogger, s3Client, s3Config)
	clipAssembler := adapters.NewFFmpegClipAssembler(contentFetcher, zeroLogger)

	sceneDecomposer := services.NewSceneDecomposer(zeroLogger, scriptDecomposer, pipelineConfig)
	keyframeGenerator := services.NewKeyframeGenerator(zeroLogger, imageJobService, imagePollerConfig, pipelineConfig)
	videoSynthesizer := services.NewVideoSynthesizer(zeroLogger, videoJobService, videoPollerConfig)

	orchestrator := services.NewPipelineOrchestrator(zeroLogger, workerPool, runRepository, draftStore, textStore,
		blobStore, sceneDecomposer, keyframeGenerator, videoSynthesizer)

	clipAssembly := services.NewClipAssemblyService(zeroLogger, runRepository, clipAssembler, blobStore)

	runsController := controllers.NewPipelineRunsController(zeroLogger, orchestrator, clipAssembly)

	router := gin.Default()

	if err := router.SetTrustedProxies(nil); err != nil {
		log.Fatal().Err(err).Msg("Failed to set trusted proxies!")
	}

	authHandler, err := middleware.NewAuthHandler(jwksUrl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth handler!")
	}

	router.Use(authHandler.AuthMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if os.Getenv("MOCK_GENERATORS") == "true" {
		mockbackend.Init(router, workerPool, zeroLogger)
	}

	runsController.RegisterRoutes(router)

	if err := router.Run(":8080"); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server!")
	}
}
