package extraction

// Prompt asks a vision model for a Result-shaped JSON document.
const Prompt = `Analyze these university grade card images (there may be multiple pages) and extract ALL course information.
Combine data from ALL pages into a single list.

IMPORTANT: Return ONLY valid JSON, no markdown formatting, no code blocks.

Structure the response exactly like this:
{
  "studentName": "extract from grade card if visible (use the most complete name found)",
  "semesters": [
    {
      "semester": 1,
      "courses": [
        {"code": "211BIT1101", "name": "Biology for Engineers", "credits": 3.0, "grade": "C"}
      ]
    }
  ],
  "totalCGPA": 7.54
}

Rules:
1. Extract ALL courses from ALL provided images
2. Group courses by semester number
3. Convert credits to numbers (e.g., "3.0" -> 3.0)
4. Include course code, name, credits, and grade
5. Skip rows with empty grades or invalid data
6. Extract the final CGPA shown at the bottom (if visible on any page)
7. Return ONLY the JSON object, no other text`
