package validators

import "go.mongodb.org/mongo-driver/bson"

var SystemSettingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "value", "category", "updated_at"},
		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},
			"value": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},
			"category": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"description": bson.M{
				"bsonType": "string",
			},
			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var LeaseValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "holder", "expires_at"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string"},
			"holder":     bson.M{"bsonType": "string"},
			"expires_at": bson.M{"bsonType": "date"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
