package outbox

const setLoggedSchema = `{
  "type": "object",
  "title": "SetLogged",
  "properties": {
    "set_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "client_id": {"type": "string"},
    "workout_log_id": {"type": "string"},
    "block_id": {"type": "string"},
    "block_type": {"type": "string"},
    "completed_at": {"type": "string", "format": "date-time"}
  },
  "required": ["set_id", "tenant_id", "client_id", "workout_log_id", "block_id", "block_type", "completed_at"],
  "additionalProperties": false
}`

const prAchievedSchema = `{
  "type": "object",
  "title": "PRAchieved",
  "properties": {
    "tenant_id": {"type": "string"},
    "client_id": {"type": "string"},
    "exercise_id": {"type": "string"},
    "weight_pr": {"type": "boolean"},
    "volume_pr": {"type": "boolean"},
    "weight": {"type": "number"},
    "reps": {"type": "integer"},
    "volume": {"type": "number"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["tenant_id", "client_id", "exercise_id", "weight_pr", "volume_pr", "weight", "reps", "volume", "occurred_at"],
  "additionalProperties": false
}`
