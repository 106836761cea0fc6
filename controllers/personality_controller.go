package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/duocast-backend/services"
)

// PersonalityController trả catalog personality kèm voice của provider đang chạy
type PersonalityController struct {
	TTS    services.SpeechSynthesizer
	Voices *services.VoiceCatalog
}

func NewPersonalityController(tts services.SpeechSynthesizer, voices *services.VoiceCatalog) *PersonalityController {
	return &PersonalityController{TTS: tts, Voices: voices}
}

func (pc *PersonalityController) List(c *gin.Context) {
	provider := pc.TTS.ActiveProvider()
	c.JSON(http.StatusOK, gin.H{
		"provider":      provider,
		"personalities": pc.Voices.List(provider),
	})
}
