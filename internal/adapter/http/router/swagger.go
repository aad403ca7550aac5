package router

import (
	"fmt"
	"net/http"
)

func registerSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})

	mux.HandleFunc("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, swaggerHTML, "/swagger/openapi.json")
	})

	mux.HandleFunc("/swagger/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(openAPI))
	})
}

const swaggerHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Wallet Ledger API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      window.ui = SwaggerUIBundle({
        url: "%s",
        dom_id: "#swagger-ui"
      });
    };
  </script>
</body>
</html>`

const openAPI = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Wallet Ledger API",
    "version": "1.0.0"
  },
  "paths": {
    "/accounts": {
      "post": {
        "summary": "Create a custodial account",
        "description": "Generates a private key, stores it encrypted and returns the plaintext key exactly once.",
        "security": [
          {
            "BasicAuth": []
          }
        ],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["publicAddress"],
                "properties": {
                  "publicAddress": {"type": "string", "maxLength": 255}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Created; response data carries the one-time private key"},
          "400": {"description": "Validation error or duplicate public address"},
          "401": {"description": "Unauthorized"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/accounts/{id}": {
      "get": {
        "summary": "Get account with derived balance",
        "parameters": [
          {
            "name": "id",
            "in": "path",
            "required": true,
            "schema": {"type": "string", "format": "uuid"}
          }
        ],
        "responses": {
          "200": {"description": "Account fetched"},
          "404": {"description": "Account not found"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/accounts/{id}/balance": {
      "get": {
        "summary": "Get derived balance",
        "description": "Balance is completed deposits minus completed withdrawals; it is never stored.",
        "parameters": [
          {
            "name": "id",
            "in": "path",
            "required": true,
            "schema": {"type": "string", "format": "uuid"}
          }
        ],
        "responses": {
          "200": {"description": "Balance fetched"},
          "404": {"description": "Account not found"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/accounts/{id}/transactions": {
      "get": {
        "summary": "List account transactions newest first",
        "description": "Failed attempts are part of the history.",
        "parameters": [
          {
            "name": "id",
            "in": "path",
            "required": true,
            "schema": {"type": "string", "format": "uuid"}
          },
          {
            "name": "limit",
            "in": "query",
            "required": false,
            "schema": {"type": "integer", "default": 50, "maximum": 500}
          },
          {
            "name": "offset",
            "in": "query",
            "required": false,
            "schema": {"type": "integer", "default": 0}
          }
        ],
        "responses": {
          "200": {"description": "Transactions fetched"},
          "404": {"description": "Account not found"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/transactions/deposit": {
      "post": {
        "summary": "Deposit funds",
        "security": [
          {
            "BasicAuth": []
          }
        ],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["accountId", "amount"],
                "properties": {
                  "accountId": {"type": "string", "format": "uuid"},
                  "amount": {"type": "string", "example": "100.50000000"}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Deposit completed"},
          "400": {"description": "Validation error"},
          "401": {"description": "Unauthorized"},
          "404": {"description": "Account not found"},
          "409": {"description": "Account lock contention, retry"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/transactions/withdraw": {
      "post": {
        "summary": "Withdraw funds",
        "description": "An attempt the balance cannot cover is recorded as FAILED and returned with a 422.",
        "security": [
          {
            "BasicAuth": []
          }
        ],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["accountId", "amount"],
                "properties": {
                  "accountId": {"type": "string", "format": "uuid"},
                  "amount": {"type": "string", "example": "50.25000000"}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Withdrawal completed"},
          "400": {"description": "Validation error"},
          "401": {"description": "Unauthorized"},
          "404": {"description": "Account not found"},
          "409": {"description": "Account lock contention, retry"},
          "422": {"description": "Insufficient funds; data carries the FAILED transaction"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/transactions/{id}": {
      "get": {
        "summary": "Get a transaction",
        "parameters": [
          {
            "name": "id",
            "in": "path",
            "required": true,
            "schema": {"type": "string", "format": "uuid"}
          }
        ],
        "responses": {
          "200": {"description": "Transaction fetched"},
          "404": {"description": "Transaction not found"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/transactions/{id}/reverse": {
      "post": {
        "summary": "Reverse a completed transaction",
        "description": "Appends a compensating transaction of the opposite kind; history is never rewritten.",
        "security": [
          {
            "BasicAuth": []
          }
        ],
        "parameters": [
          {
            "name": "id",
            "in": "path",
            "required": true,
            "schema": {"type": "string", "format": "uuid"}
          }
        ],
        "responses": {
          "201": {"description": "Compensating transaction completed"},
          "400": {"description": "Not reversible or already reversed"},
          "401": {"description": "Unauthorized"},
          "404": {"description": "Transaction not found"},
          "409": {"description": "Account lock contention, retry"},
          "422": {"description": "Insufficient funds; data carries the FAILED compensation"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/healthz": {
      "get": {
        "summary": "Liveness probe",
        "responses": {
          "200": {"description": "Service is up"}
        }
      }
    }
  },
  "components": {
    "securitySchemes": {
      "BasicAuth": {
        "type": "http",
        "scheme": "basic"
      }
    }
  }
}`
