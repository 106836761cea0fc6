package controllers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/duocast-backend/services"
)

// TTSController cho phép nghe thử giọng của một personality
type TTSController struct {
	TTS    services.SpeechSynthesizer
	Voices *services.VoiceCatalog
}

func NewTTSController(tts services.SpeechSynthesizer, voices *services.VoiceCatalog) *TTSController {
	return &TTSController{TTS: tts, Voices: voices}
}

type TTSPreviewRequest struct {
	Text          string  `json:"text" binding:"required"`
	PersonalityID string  `json:"personality_id" binding:"required"`
	SpeakingRate  float64 `json:"speaking_rate"`
}

func (tc *TTSController) Preview(c *gin.Context) {
	var req TTSPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	provider := tc.TTS.ActiveProvider()
	_, voice, err := tc.Voices.Resolve(provider, req.PersonalityID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	audioContent, err := tc.TTS.Synthesize(c.Request.Context(), req.Text, services.SynthesizeOptions{
		Voice: voice,
		Speed: req.SpeakingRate,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"voice_used":    voice,
		"audio_content": base64.StdEncoding.EncodeToString(audioContent),
		"message":       "Text converted to speech successfully",
	})
}
