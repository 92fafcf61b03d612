package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Result 记录单次请求的 HTTP 结果，便于聚合统计。
type Result struct {
	Status int
	Body   string
	Err    error
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	adminEmail := flag.String("admin-email", "admin@example.com", "admin account (ADMIN_EMAIL on the server)")
	adminPassword := flag.String("admin-password", "admin123", "admin password")
	stock := flag.Int64("stock", 10, "initial stock of the test product")

	// 超卖测试参数：200 个用户并发抢 10 件
	nUsers := flag.Int("users", 200, "distinct users")
	concurrency := flag.Int("c", 50, "max concurrency")
	burst := flag.Int("burst", 50, "requests from a single user in the rate limit test")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	run := uuid.NewString()[:8]

	adminToken, err := login(client, *baseURL, *adminEmail, *adminPassword)
	if err != nil {
		panic(fmt.Sprintf("admin login failed: %v", err))
	}
	productID, err := createProduct(client, *baseURL, adminToken, "loadtest-"+run, *stock)
	if err != nil {
		panic(fmt.Sprintf("create product failed: %v", err))
	}
	fmt.Printf("product %d created with stock %d\n", productID, *stock)

	tokens := make([]string, *nUsers)
	for i := range tokens {
		email := fmt.Sprintf("lt-%s-%d@example.com", run, i)
		if tokens[i], err = register(client, *baseURL, email); err != nil {
			panic(fmt.Sprintf("register %s failed: %v", email, err))
		}
	}
	fmt.Printf("%d users registered\n", len(tokens))

	// 1) 不超卖测试：不同用户并发下单
	fmt.Printf("start oversell test: product=%d users=%d concurrency=%d\n", productID, *nUsers, *concurrency)
	results := runCheckout(client, *baseURL, productID, tokens, *concurrency)
	printSummary("oversell", results)

	avail, reserved, err := getStock(client, *baseURL, productID)
	if err != nil {
		fmt.Println("stock check err:", err)
	} else {
		created := countStatus(results, http.StatusCreated)
		fmt.Printf("final stock: available=%d reserved=%d orders=%d\n", avail, reserved, created)
		if avail < 0 || int64(created) > *stock || avail+reserved != *stock {
			fmt.Println("OVERSELL DETECTED")
		}
	}

	// 2) 限流测试：同一个用户重复下单（更容易触发 429）
	fmt.Printf("\nstart rate limit test: same user, %d requests\n", *burst)
	same := make([]string, *burst)
	for i := range same {
		same[i] = tokens[0]
	}
	results2 := runCheckout(client, *baseURL, productID, same, *burst)
	printSummary("rate_limit", results2)
}

// runCheckout 每个 token 一个请求：加购 1 件后立即下单。
func runCheckout(client *http.Client, baseURL string, productID uint, tokens []string, concurrency int) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, len(tokens))

	for i, tok := range tokens {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, tok string) {
			defer wg.Done()
			defer func() { <-sem }()

			add := do(client, http.MethodPost, baseURL+"/api/cart/items", tok, map[string]any{"product_id": productID, "quantity": 1})
			if add.Err != nil || add.Status >= 300 {
				results[idx] = add
				return
			}
			results[idx] = do(client, http.MethodPost, baseURL+"/api/orders/checkout", tok, nil)
		}(i, tok)
	}

	wg.Wait()
	return results
}

func do(client *http.Client, method, url, token string, body any) Result {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, url, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(b)}
}

// printSummary 聚合输出不同状态码分布。
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	codes := make([]int, 0, len(count))
	for code := range count {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range codes {
		fmt.Printf("  %d -> %d\n", code, count[code])
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}

func countStatus(results []Result, status int) int {
	n := 0
	for _, r := range results {
		if r.Err == nil && r.Status == status {
			n++
		}
	}
	return n
}

func decode(res Result, out any) error {
	if res.Err != nil {
		return res.Err
	}
	if res.Status >= 300 {
		return fmt.Errorf("status=%d body=%s", res.Status, res.Body)
	}
	var env envelope
	if err := json.Unmarshal([]byte(res.Body), &env); err != nil {
		return err
	}
	return json.Unmarshal(env.Data, out)
}

func login(client *http.Client, baseURL, email, password string) (string, error) {
	var sess struct {
		Token string `json:"token"`
	}
	res := do(client, http.MethodPost, baseURL+"/api/auth/login", "", map[string]string{"email": email, "password": password})
	if err := decode(res, &sess); err != nil {
		return "", err
	}
	return sess.Token, nil
}

func register(client *http.Client, baseURL, email string) (string, error) {
	var sess struct {
		Token string `json:"token"`
	}
	res := do(client, http.MethodPost, baseURL+"/api/auth/register", "",
		map[string]string{"name": "loadtest", "email": email, "password": "loadtest"})
	if err := decode(res, &sess); err != nil {
		return "", err
	}
	return sess.Token, nil
}

func createProduct(client *http.Client, baseURL, token, name string, stock int64) (uint, error) {
	var p struct {
		ID uint `json:"id"`
	}
	res := do(client, http.MethodPost, baseURL+"/api/products", token, map[string]any{
		"name": name, "description": "load test product", "price": 100, "available_stock": stock,
	})
	if err := decode(res, &p); err != nil {
		return 0, err
	}
	return p.ID, nil
}

// getStock 查询商品当前库存，用于压测后校验是否出现超卖。
func getStock(client *http.Client, baseURL string, productID uint) (int64, int64, error) {
	var p struct {
		AvailableStock int64 `json:"available_stock"`
		ReservedStock  int64 `json:"reserved_stock"`
	}
	res := do(client, http.MethodGet, fmt.Sprintf("%s/api/products/%d", baseURL, productID), "", nil)
	if err := decode(res, &p); err != nil {
		return 0, 0, err
	}
	return p.AvailableStock, p.ReservedStock, nil
}
