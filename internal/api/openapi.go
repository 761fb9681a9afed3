package api

// openAPISpec is served as-is from /swagger.json.
const openAPISpec = `{
  "openapi": "3.0.0",
  "info": {
    "title": "Checkout Service API",
    "version": "1.0.0"
  },
  "paths": {
    "/health": {
      "get": {
        "summary": "Health check",
        "responses": {
          "200": {
            "description": "Service is healthy",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/HealthResponse"}}}
          }
        }
      }
    },
    "/api/v1/checkout": {
      "post": {
        "summary": "Price the cart owned by the cart cookie",
        "parameters": [
          {"$ref": "#/components/parameters/Currency"},
          {"$ref": "#/components/parameters/Country"}
        ],
        "responses": {
          "200": {
            "description": "Quote",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/CheckoutResponse"}}}
          },
          "400": {"description": "Unsupported currency"},
          "404": {"description": "No cart cookie, unknown session or empty cart"}
        }
      }
    },
    "/api/v1/payment": {
      "post": {
        "summary": "Hold every cart line and return a payment reference",
        "parameters": [
          {"$ref": "#/components/parameters/Currency"},
          {"$ref": "#/components/parameters/Country"}
        ],
        "responses": {
          "200": {
            "description": "Payment initialized",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/PaymentResponse"}}}
          },
          "404": {"description": "No cart cookie, unknown session or empty cart"},
          "409": {"description": "Not enough inventory for a cart line"}
        }
      }
    },
    "/api/v1/payment/webhook": {
      "post": {
        "summary": "Payment provider notification",
        "parameters": [
          {"name": "x-paystack-signature", "in": "header", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {"description": "Confirmed, released, duplicate, unmatched, rejected or ignored"},
          "400": {"description": "Malformed payload"},
          "401": {"description": "Bad signature"}
        }
      }
    },
    "/api/v1/orders": {
      "get": {
        "summary": "Paid orders of the signed-in principal, newest first",
        "parameters": [
          {"name": "X-Principal", "in": "header", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {
            "description": "Orders",
            "content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "#/components/schemas/OrderResponse"}}}}
          },
          "401": {"description": "No principal"}
        }
      }
    },
    "/api/v1/reservations": {
      "get": {
        "summary": "Pending reservations of the cart",
        "responses": {
          "200": {
            "description": "Reservations",
            "content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "#/components/schemas/ReservationResponse"}}}}
          }
        }
      },
      "post": {
        "summary": "Reserve a quantity of a sku for the cart",
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ReserveRequest"}}}
        },
        "responses": {
          "201": {
            "description": "Reserved",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ReservationResponse"}}}
          },
          "404": {"description": "Unknown sku"},
          "409": {"description": "Not enough inventory"}
        }
      }
    },
    "/api/v1/reservations/{sku}": {
      "delete": {
        "summary": "Release part or all of the cart's hold on a sku",
        "parameters": [
          {"name": "sku", "in": "path", "required": true, "schema": {"type": "string"}},
          {"name": "qty", "in": "query", "required": true, "schema": {"type": "integer"}}
        ],
        "responses": {
          "204": {"description": "Released"},
          "404": {"description": "No pending hold large enough"}
        }
      }
    },
    "/api/v1/inventory/{sku}": {
      "get": {
        "summary": "Get inventory by sku",
        "parameters": [
          {"name": "sku", "in": "path", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {
            "description": "Inventory found",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/InventoryResponse"}}}
          },
          "404": {"description": "Inventory not found"}
        }
      }
    }
  },
  "components": {
    "parameters": {
      "Currency": {"name": "currency", "in": "query", "required": true, "schema": {"type": "string", "enum": ["USD", "NGN"]}},
      "Country": {"name": "country", "in": "query", "required": true, "schema": {"type": "string"}}
    },
    "schemas": {
      "OrderResponse": {
        "type": "object",
        "properties": {
          "reference": {"type": "string"},
          "created_at": {"type": "string", "format": "date-time"},
          "currency": {"type": "string"},
          "total": {"type": "string"},
          "lines": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {"sku": {"type": "string"}, "name": {"type": "string"}, "qty": {"type": "integer"}}
            }
          }
        }
      },
      "HealthResponse": {
        "type": "object",
        "properties": {"status": {"type": "string"}}
      },
      "CheckoutResponse": {
        "type": "object",
        "properties": {
          "principal": {"type": "string"},
          "currency": {"type": "string"},
          "sub_total": {"type": "string"},
          "tax_name": {"type": "string"},
          "tax_rate": {"type": "string"},
          "tax_total": {"type": "string"},
          "ship_cost": {"type": "string"},
          "weight": {"type": "string"},
          "weight_unit": {"type": "string"},
          "total": {"type": "string"}
        }
      },
      "PaymentResponse": {
        "type": "object",
        "properties": {
          "reference": {"type": "string"},
          "public_key": {"type": "string"},
          "currency": {"type": "string"},
          "total": {"type": "string"},
          "expire_at": {"type": "string", "format": "date-time"}
        }
      },
      "ReserveRequest": {
        "type": "object",
        "properties": {
          "sku": {"type": "string"},
          "qty": {"type": "integer"}
        }
      },
      "ReservationResponse": {
        "type": "object",
        "properties": {
          "id": {"type": "string", "format": "uuid"},
          "sku": {"type": "string"},
          "qty": {"type": "integer"},
          "status": {"type": "string"},
          "expire_at": {"type": "string", "format": "date-time"}
        }
      },
      "InventoryResponse": {
        "type": "object",
        "properties": {
          "sku": {"type": "string"},
          "name": {"type": "string"},
          "inventory": {"type": "integer"}
        }
      }
    }
  }
}`
