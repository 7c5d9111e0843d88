package validators

import "go.mongodb.org/mongo-driver/bson"

var bookingStatuses = []string{"pending", "confirmed", "expired", "cancelled", "completed"}

var nullableDate = bson.M{"bsonType": bson.A{"date", "null"}}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"product_id",
			"renter_id",
			"status",
			"amount",
			"currency",
			"created_at",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"product_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"renter_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"owner_id": bson.M{
				"bsonType":  "string",
				"maxLength": 64,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     bookingStatuses,
			},

			"amount": bson.M{
				"bsonType": "decimal",
				"minimum":  0,
			},

			"currency": bson.M{
				"bsonType": "string",
				"pattern":  "^[A-Z]{3}$",
			},

			"payment_reference": bson.M{
				"bsonType":  "string",
				"maxLength": 128,
			},

			"cancellation_reason": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},

			"expires_at":   nullableDate,
			"confirmed_at": nullableDate,
			"cancelled_at": nullableDate,
			"completed_at": nullableDate,
			"expired_at":   nullableDate,
		},

		// expires_at is required while pending and must be null otherwise.
		"oneOf": bson.A{
			bson.M{
				"properties": bson.M{
					"status":     bson.M{"enum": bson.A{"pending"}},
					"expires_at": bson.M{"bsonType": "date"},
				},
				"required": bson.A{"expires_at"},
			},
			bson.M{
				"properties": bson.M{
					"status":     bson.M{"enum": bson.A{"confirmed", "expired", "cancelled", "completed"}},
					"expires_at": bson.M{"bsonType": "null"},
				},
			},
		},
	},
}
