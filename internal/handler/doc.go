// Package handler implements the exambank HTTP API on gin.
//
// All routes live under /api. Resources follow REST conventions: GET for
// retrieval, POST for creation, PATCH for partial updates (PUT renames a
// type) and DELETE for removal. Deletes answer with the cascade summary.
//
// # Errors
//
// Domain errors map onto status codes with errors.Is: not found 404,
// duplicate content 409, validation 400, uninitialized storage 503 and
// anything else 500. Error bodies are {error, details}.
//
// # Search
//
// GET /api/questions/search takes exam_name, type_id, tag_ids and mode from
// the query string; POST takes the same criteria as JSON. ?format=yaml
// streams the YAML export instead of JSON.
//
// # Server-Sent Events
//
// /api/events streams service events to browsers when the router is given
// an events handler.
package handler
