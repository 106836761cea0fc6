package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/vnkhanh/duocast-backend/config"
	"github.com/vnkhanh/duocast-backend/controllers"
	"github.com/vnkhanh/duocast-backend/repositories"
	"github.com/vnkhanh/duocast-backend/routes"
	"github.com/vnkhanh/duocast-backend/services"
	"github.com/vnkhanh/duocast-backend/utils"
	"github.com/vnkhanh/duocast-backend/ws"
)

// supabaseArchiver đẩy bản MP3 lên Supabase sau khi pipeline thành công
type supabaseArchiver struct{}

func (supabaseArchiver) Archive(filename string, data []byte) (string, error) {
	return utils.UploadBytesToSupabase(data, filename, "audio/mpeg")
}

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("Không tìm thấy file .env")
	}

	config.InitDB()

	// Wire toàn bộ collaborator của pipeline một chỗ
	repo := repositories.NewGormPodcastRepository(config.DB)
	engine := services.NewEngine(services.NewGeminiClient())
	tts := services.NewSynthesizerFromEnv()
	synth := services.NewDialogueSynthesizer(tts, services.DefaultSynthesisConcurrency)
	assembler := services.NewAudioAssembler("")
	voices := services.NewVoiceCatalog()

	generator := services.NewGeneratorService(services.GeneratorDeps{
		Repo:      repo,
		Engine:    engine,
		TTS:       tts,
		Synth:     synth,
		Assembler: assembler,
		Scraper:   services.NewScraper(),
		Voices:    voices,
		Notifier:  ws.StatusNotifier{},
		Archiver:  supabaseArchiver{},
	})

	// Dọn file scratch của ffmpeg bị bỏ sót (ví dụ sau crash)
	utils.StartScratchJanitor(assembler.ScratchDir())

	r := gin.Default()

	//Bật CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r = routes.SetupRouter(r, config.DB, routes.Controllers{
		Podcast:     controllers.NewPodcastController(repo, generator, tts, voices),
		Personality: controllers.NewPersonalityController(tts, voices),
		TTS:         controllers.NewTTSController(tts, voices),
	})

	// Route test server
	r.GET("/", func(c *gin.Context) {
		c.String(200, "Duocast server is running")
	})

	// Lấy PORT từ env
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080" // mặc định nếu không có PORT
	}

	log.Println("Server running at Port:" + port)
	r.Run(":" + port)
}
