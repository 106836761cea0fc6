package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/duocast-backend/config"
	"github.com/vnkhanh/duocast-backend/models"
)

// AdminGetUsers trả danh sách người dùng (không kèm mật khẩu)
func AdminGetUsers(c *gin.Context) {
	var users []models.User
	if err := config.DB.Order("created_at desc").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không lấy được danh sách người dùng"})
		return
	}
	c.JSON(http.StatusOK, users)
}

// AdminToggleUserStatus khóa / mở khóa một tài khoản
func AdminToggleUserStatus(c *gin.Context) {
	id := c.Param("id")

	var user models.User
	if err := config.DB.First(&user, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy người dùng"})
		return
	}

	// Tài khoản admin không tự khóa được chính nó
	if user.ID.String() == c.GetString("user_id") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không thể khóa tài khoản của chính bạn"})
		return
	}

	newStatus := true
	if user.Status == nil || *user.Status {
		newStatus = false
	}
	user.Status = &newStatus

	if err := config.DB.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không cập nhật được trạng thái"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cập nhật trạng thái thành công",
		"user": gin.H{
			"id":     user.ID,
			"email":  user.Email,
			"status": user.Status,
		},
	})
}
