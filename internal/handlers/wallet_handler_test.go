package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vault-backend/internal/clients"
	"vault-backend/internal/events"
	"vault-backend/internal/repository"
	"vault-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func newWalletTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := repository.NewMemoryStore()
	accounts := services.NewAccountService(store, clients.NopCustodyClient{}, events.NopPublisher{}, logger)
	handler := NewWalletHandler(accounts, logger)

	r := gin.New()
	r.POST("/wallets", handler.RegisterWalletHandler)
	return r
}

func TestRegisterWalletHandler(t *testing.T) {
	r := newWalletTestRouter(t)

	wallet := "0x" + strings.Repeat("00", 31) + "01"
	owner := "0x" + strings.Repeat("00", 19) + "01"
	body, _ := json.Marshal(gin.H{"wallet_id": wallet, "owner_address": owner})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/wallets", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool `json:"success"`
		Wallet  struct {
			ID           string `json:"id"`
			OwnerAddress string `json:"owner_address"`
		} `json:"wallet"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Wallet.ID != wallet || resp.Wallet.OwnerAddress != owner {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}
}

func TestRegisterWalletHandlerDuplicate(t *testing.T) {
	r := newWalletTestRouter(t)

	wallet := "0x" + strings.Repeat("00", 31) + "02"
	owner := "0x" + strings.Repeat("00", 19) + "02"
	body, _ := json.Marshal(gin.H{"wallet_id": wallet, "owner_address": owner})

	for i, want := range []int{http.StatusOK, http.StatusConflict} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/wallets", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("attempt %d: expected %d, got %d: %s", i+1, want, w.Code, w.Body.String())
		}
	}
}
