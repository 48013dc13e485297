package main_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/models"
)

const (
	testAppBinary         = "./secondmarket_test_app"
	testAppPort           = "8089"
	testServiceApiPortApi = "8091"
	testServiceApiPortBg  = "8092"
	testAppURL            = "http://localhost:" + testAppPort
	testServiceApiURL     = "http://localhost:" + testServiceApiPortApi
	startupTimeout        = 15 * time.Second
	pingEndpoint          = testAppURL + "/v1/ping"
)

// TestMain builds the binary, starts the API and background worker as
// separate processes, and tears everything down afterwards.
func TestMain(m *testing.M) {
	defer func() {
		_ = os.Remove(testAppBinary)
	}()

	log.Println("Integration Test Setup: Building application...")
	godotenv.Load()
	buildCmd := exec.Command("go", "build", "-o", testAppBinary, ".")
	buildOutput, err := buildCmd.CombinedOutput()
	if err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(buildOutput))
		os.Exit(1)
	}

	commonEnv := []string{
		"SECOND_MARKET_JWT_SECRET=integration-test-secret",
		"GIN_MODE=release",
		"MOCK_SERVICES=true",
		"REDIS_ADDR=localhost:6379",
		"SMTP_FROM_ADDRESS=test@example.com",
	}

	apiCmd := exec.Command(testAppBinary, "-m", "api")
	apiCmd.Env = append(append(os.Environ(), commonEnv...),
		"API_PORT="+testAppPort,
		"SERVICE_API_PORT="+testServiceApiPortApi,
		"RATE_LIMIT_SOFT_BUCKET_SIZE=100",
		"RATE_LIMIT_SOFT_REFILL_RATE=100",
		"RATE_LIMIT_HARD_BUCKET_SIZE=200",
		"RATE_LIMIT_HARD_REFILL_RATE=200",
	)
	apiCmd.Stderr = os.Stderr
	apiCmd.Stdout = os.Stdout

	if err := apiCmd.Start(); err != nil {
		log.Printf("Failed to start API process: %v", err)
		os.Exit(1)
	}
	log.Printf("Integration Test Setup: API process started (PID: %d)...", apiCmd.Process.Pid)

	bgCmd := exec.Command(testAppBinary, "-m", "bg")
	bgCmd.Env = append(append(os.Environ(), commonEnv...),
		"SERVICE_API_PORT="+testServiceApiPortBg,
	)
	bgCmd.Stderr = os.Stderr
	bgCmd.Stdout = os.Stdout

	if err := bgCmd.Start(); err != nil {
		_ = apiCmd.Process.Kill()
		log.Printf("Failed to start Background Worker process: %v", err)
		os.Exit(1)
	}
	log.Printf("Integration Test Setup: Background Worker started (PID: %d)...", bgCmd.Process.Pid)

	defer func() {
		log.Println("Integration Test Teardown: Shutting down application processes...")
		for _, cmd := range []*exec.Cmd{bgCmd, apiCmd} {
			if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
				_ = cmd.Process.Kill()
				continue
			}
			_, _ = cmd.Process.Wait()
		}
	}()

	log.Printf("Integration Test Setup: Waiting for API at %s...", pingEndpoint)
	startTime := time.Now()
	ready := false
	for time.Since(startTime) < startupTimeout {
		resp, err := http.Get(pingEndpoint)
		if err == nil && resp.StatusCode == http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if string(bodyBytes) == "pong" {
				ready = true
				break
			}
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(200 * time.Millisecond)
	}

	if !ready {
		log.Printf("Application failed to start within %v", startupTimeout)
		os.Exit(1)
	}

	// Give the worker a moment to register its queues.
	time.Sleep(2 * time.Second)

	m.Run()
}

// callJsonApi posts to /v1/api with optional bearer token.
func callJsonApi(t *testing.T, method string, args interface{}, jwtToken string) (map[string]interface{}, *http.Response) {
	t.Helper()
	payload := map[string]interface{}{"method": method}
	if args != nil {
		payload["arguments"] = args
	}
	bodyBytes, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest("POST", testAppURL+"/v1/api", bytes.NewReader(bodyBytes))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if jwtToken != "" {
		req.Header.Set("Authorization", "Bearer "+jwtToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	respBodyBytes, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	var respBody map[string]interface{}
	require.NoError(t, json.Unmarshal(respBodyBytes, &respBody), "body: %s", string(respBodyBytes))
	return respBody, resp
}

// registerUser signs up a fresh account and returns its token and code.
func registerUser(t *testing.T, name string) (token, code, login string) {
	t.Helper()
	login = fmt.Sprintf("%s_%d@example.com", name, time.Now().UnixNano())
	respBody, resp := callJsonApi(t, "register", map[string]interface{}{
		"name":     name,
		"login":    login,
		"password": "StrongP@ssw0rd123",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, respBody["success"], "register failed: %+v", respBody)

	data, ok := respBody["data"].(map[string]interface{})
	require.True(t, ok, "register data is not a map")
	token, _ = data["token"].(string)
	code, _ = data["code"].(string)
	require.NotEmpty(t, token)
	require.NotEmpty(t, code)
	return token, code, login
}

func TestIntegration_Ping(t *testing.T) {
	resp, err := http.Get(pingEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	bodyBytes, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.Equal(t, "pong", string(bodyBytes))
}

func TestIntegration_RegisterAndLogin(t *testing.T) {
	_, _, login := registerUser(t, "ana")

	respBody, resp := callJsonApi(t, "login", map[string]interface{}{
		"login":    login,
		"password": "StrongP@ssw0rd123",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, respBody["success"], "login failed: %+v", respBody)

	data := respBody["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"])
	assert.Equal(t, login, data["login"])
}

func TestIntegration_LoginWrongPassword(t *testing.T) {
	_, _, login := registerUser(t, "luis")

	respBody, resp := callJsonApi(t, "login", map[string]interface{}{
		"login":    login,
		"password": "definitely-wrong",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, respBody["success"])
	assert.Equal(t, "INVALID_CREDENTIALS", respBody["error_code"])
}

// TestIntegration_SellAndBuy walks the full lifecycle: publish an
// article, open a chat, buy it, confirm, complete, and rate the seller.
func TestIntegration_SellAndBuy(t *testing.T) {
	sellerToken, sellerCode, sellerLogin := registerUser(t, "seller")
	buyerToken, _, _ := registerUser(t, "buyer")

	// Seller drafts and publishes an article.
	respBody, _ := callJsonApi(t, "create_article", map[string]interface{}{
		"name":        "Vintage record player",
		"description": "Works, needs a new needle",
		"price":       75.5,
		"condition":   "good",
		"category":    "electronics",
	}, sellerToken)
	require.Equal(t, true, respBody["success"], "create_article failed: %+v", respBody)
	articleData := respBody["data"].(map[string]interface{})
	articleCode := fmt.Sprintf("%.0f", articleData["code"].(float64))

	respBody, _ = callJsonApi(t, "publish_article", map[string]interface{}{
		"article_code": articleCode,
	}, sellerToken)
	require.Equal(t, true, respBody["success"], "publish_article failed: %+v", respBody)

	// The article shows up in the public search.
	searchURL := fmt.Sprintf("%s/v1/articles?q=%s", testAppURL, url.QueryEscape("record player"))
	searchResp, err := http.Get(searchURL)
	require.NoError(t, err)
	searchBody, _ := io.ReadAll(searchResp.Body)
	searchResp.Body.Close()
	assert.Equal(t, http.StatusOK, searchResp.StatusCode)
	assert.Contains(t, string(searchBody), "Vintage record player")

	// Buyer opens a chat and asks a question.
	respBody, _ = callJsonApi(t, "create_chat", map[string]interface{}{
		"article_code": articleCode,
	}, buyerToken)
	require.Equal(t, true, respBody["success"], "create_chat failed: %+v", respBody)
	chatData := respBody["data"].(map[string]interface{})
	chat := chatData["chat"].(map[string]interface{})
	chatCode := fmt.Sprintf("%.0f", chat["code"].(float64))

	respBody, _ = callJsonApi(t, "send_message", map[string]interface{}{
		"chat_code": chatCode,
		"content":   "Does the turntable spin at 45 rpm too?",
	}, buyerToken)
	require.Equal(t, true, respBody["success"], "send_message failed: %+v", respBody)

	// A second create_chat for the same pair returns the existing one.
	respBody, _ = callJsonApi(t, "create_chat", map[string]interface{}{
		"article_code": articleCode,
	}, buyerToken)
	require.Equal(t, true, respBody["success"])
	chatData = respBody["data"].(map[string]interface{})
	assert.Equal(t, false, chatData["created"])

	// Buyer purchases; the article becomes reserved.
	respBody, _ = callJsonApi(t, "create_purchase", map[string]interface{}{
		"article_code": articleCode,
	}, buyerToken)
	require.Equal(t, true, respBody["success"], "create_purchase failed: %+v", respBody)
	purchaseData := respBody["data"].(map[string]interface{})
	purchaseCode := fmt.Sprintf("%.0f", purchaseData["code"].(float64))
	assert.Equal(t, "pending", purchaseData["state"])

	articleResp, err := http.Get(testAppURL + "/v1/articles/" + articleCode)
	require.NoError(t, err)
	articleBody, _ := io.ReadAll(articleResp.Body)
	articleResp.Body.Close()
	assert.Contains(t, string(articleBody), "reserved")

	// The seller gets notified by email through the bg worker.
	emailData := getEmailFromServiceAPI(t, models.TemplatePurchaseCreated, sellerLogin)
	assert.Contains(t, emailData["subject"], "has a buyer")

	// Seller confirms the handover; the purchase completes and the
	// article is marked sold.
	respBody, _ = callJsonApi(t, "confirm_purchase", map[string]interface{}{
		"purchase_code": purchaseCode,
	}, sellerToken)
	require.Equal(t, true, respBody["success"], "confirm_purchase failed: %+v", respBody)
	assert.Equal(t, "completed", respBody["data"].(map[string]interface{})["state"])

	// A duplicate purchase attempt fails now.
	respBody, _ = callJsonApi(t, "create_purchase", map[string]interface{}{
		"article_code": articleCode,
	}, buyerToken)
	assert.Equal(t, false, respBody["success"])
	assert.Equal(t, "ARTICLE_NOT_AVAILABLE", respBody["error_code"])

	// Buyer rates the seller against the purchase.
	respBody, _ = callJsonApi(t, "create_rating", map[string]interface{}{
		"ratee_code":    sellerCode,
		"score":         5,
		"comment":       "Smooth deal, item as described",
		"purchase_code": purchaseCode,
	}, buyerToken)
	require.Equal(t, true, respBody["success"], "create_rating failed: %+v", respBody)

	// The rating shows on the seller's public profile.
	profileResp, err := http.Get(testAppURL + "/v1/users/" + sellerCode)
	require.NoError(t, err)
	profileBody, _ := io.ReadAll(profileResp.Body)
	profileResp.Body.Close()
	var profile map[string]interface{}
	require.NoError(t, json.Unmarshal(profileBody, &profile))
	assert.Equal(t, float64(5), profile["average_rating"])
}

func TestIntegration_SelfPurchaseRejected(t *testing.T) {
	sellerToken, _, _ := registerUser(t, "selfbuyer")

	respBody, _ := callJsonApi(t, "create_article", map[string]interface{}{
		"name":      "Old skis",
		"price":     30,
		"condition": "worn",
		"category":  "sports",
	}, sellerToken)
	require.Equal(t, true, respBody["success"], "create_article failed: %+v", respBody)
	articleCode := fmt.Sprintf("%.0f", respBody["data"].(map[string]interface{})["code"].(float64))

	respBody, _ = callJsonApi(t, "publish_article", map[string]interface{}{
		"article_code": articleCode,
	}, sellerToken)
	require.Equal(t, true, respBody["success"])

	respBody, _ = callJsonApi(t, "create_purchase", map[string]interface{}{
		"article_code": articleCode,
	}, sellerToken)
	assert.Equal(t, false, respBody["success"])
	assert.Equal(t, "SELF_PURCHASE", respBody["error_code"])
}

func TestIntegration_PublicReferenceData(t *testing.T) {
	resp, err := http.Get(testAppURL + "/v1/categories")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var categories []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &categories))
	assert.NotEmpty(t, categories)

	settingsResp, err := http.Get(testAppURL + "/v1/settings")
	require.NoError(t, err)
	settingsBody, _ := io.ReadAll(settingsResp.Body)
	settingsResp.Body.Close()
	var settings map[string]interface{}
	require.NoError(t, json.Unmarshal(settingsBody, &settings))
	assert.NotZero(t, settings["max_images"])
}

// --- Service API helpers ---

func callServiceAPI(t *testing.T, method string, args []interface{}) (map[string]interface{}, *http.Response, error) {
	t.Helper()
	payload := map[string]interface{}{
		"method":    method,
		"arguments": args,
	}
	bodyBytes, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest("POST", testServiceApiURL+"/api", bytes.NewReader(bodyBytes))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)

	var respBodyBytes []byte
	if resp != nil && resp.Body != nil {
		respBodyBytes, _ = io.ReadAll(resp.Body)
		resp.Body.Close()
	}
	if err != nil {
		return nil, resp, err
	}

	var respBody map[string]interface{}
	if unmarshalErr := json.Unmarshal(respBodyBytes, &respBody); unmarshalErr != nil {
		respBody = map[string]interface{}{"raw_body": string(respBodyBytes)}
	}
	return respBody, resp, nil
}

// getEmailFromServiceAPI polls the service API until the mock email for
// the given template and recipient shows up.
func getEmailFromServiceAPI(t *testing.T, templateID, emailAddr string) map[string]interface{} {
	t.Helper()
	pollTimeout := time.After(10 * time.Second)
	pollTicker := time.NewTicker(500 * time.Millisecond)
	defer pollTicker.Stop()

	for {
		select {
		case <-pollTimeout:
			t.Fatalf("Timeout waiting for email via Service API (Template: %s, Email: %s)", templateID, emailAddr)
		case <-pollTicker.C:
			respBody, resp, err := callServiceAPI(t, "getTestEmail", []interface{}{templateID, emailAddr})
			if err != nil {
				continue
			}
			if resp.StatusCode == http.StatusOK {
				if success, _ := respBody["success"].(bool); success {
					if emailData, ok := respBody["data"].(map[string]interface{}); ok {
						return emailData
					}
				}
			}
		}
	}
}
