// Package domain defines the core types of the exambank question bank.
//
// This package contains the entities persisted by the repository layer, the
// partial updates and inputs accepted by it, and the results it returns.
//
// # Entities
//
// QuestionType is a reference category (for example a reading or writing
// section). Its content is globally unique.
//
// QuestionTag is a finer skill label owned by one QuestionType through
// TypeID. Tag content is globally unique.
//
// Exam owns zero or more Questions through Question.ExamID.
//
// Question holds the question text, an answer and an optional TypeID that is
// cleared when its type is deleted.
//
// QuestionTagRelation joins a Question to a QuestionTag. A (question, tag)
// pair appears at most once.
//
// # Soft References
//
// TypeID, ExamID and the relation ids are plain values. The storage layer
// does not enforce them; the repository cascades keep them consistent and
// ConsistencyReport describes any drift that remains.
//
// # Errors
//
// Every error returned by the repository layer matches one of the sentinels
// in errors.go via errors.Is.
package domain
