package services

import "fmt"

const attributionPrompt = `You are a fashion expert AI assistant. Analyze the clothing item in this image and provide its key attributes.
Your response MUST be a single, minified JSON object with no other text before or after it.

The JSON object should have the following keys:
- "identifier": Is it a top, bottom, dress, outerwear, shoes or accessory?
- "category": Identify the type of clothing. Examples: "T-Shirt", "Jeans", "Sweater", "Dress", "Jacket".
- "gender": Is it for men, women, or unisex?
- "primary_color": The dominant color. Be specific and accurate - use precise color names like "Navy", "Burgundy", "Forest Green", "Charcoal", "Cream", "Olive", "Maroon", "Teal", "Coral", "Beige" instead of generic terms like "Blue", "Red", "Green", "Gray", "White", "Yellow", "Pink", "Brown".
- "style": A descriptive style. Examples: "Casual", "Formal", "Sporty", "Minimalist", "Business Casual".
- "occasion": The suitable occasion. Examples: "Everyday", "Work", "Party", "Outdoor", "Formal Event".
- "weather": The appropriate weather. Examples: "Warm", "Cold", "Rainy", "Mild".
- "fit": The fit type. Examples: "Slim Fit", "Regular Fit", "Loose Fit", "Oversized".
- "sleeve_length": Sleeve length if applicable. Examples: "Short Sleeve", "Long Sleeve", "Sleeveless", "3/4 Sleeve".
- "description": A brief, one-sentence description of the item.

Analyze the provided image and generate the JSON now. Rules to read from the image:
- Focus on the main clothing item in the image.
- If multiple items are present, describe the most prominent one.
- If the item is not clearly visible, make your best guess based on visible features.
- Pay special attention to color accuracy - distinguish between similar shades (e.g., Navy vs Royal Blue, Charcoal vs Black, Cream vs White).`

// AttributionPrompt is the vision prompt sent with every clothing image.
func AttributionPrompt() string {
	return attributionPrompt
}

const stylingPromptTemplate = `You are an expert AI fashion stylist with deep knowledge of color theory, seasonal trends, and style coordination. I will provide you with a JSON list of clothing items available in my digital closet.

Your task is to create a stylish, modern, and coherent outfit suitable for a '%s in %s'. The weather conditions are: %s.

Here is my closet (JSON format):
---
%s
---

ADVANCED STYLING GUIDELINES:
🎨 COLOR COORDINATION:
- Prioritize complementary or analogous color schemes
- Consider neutral bases with one accent color
- Avoid clashing patterns unless intentionally eclectic
- Account for undertones (warm vs cool) in color matching

👗 FIT & SILHOUETTE:
- Balance proportions (fitted top with relaxed bottom, or vice versa)
- Consider layering potential for fall weather
- Ensure the outfit flatters different body types

🌟 STYLE HARMONY:
- Match formality levels (don't mix overly casual with formal)
- Consider fabric textures and how they work together
- Think about the overall aesthetic (minimalist, bohemian, classic, etc.)

☀️ SEASONAL APPROPRIATENESS:
- Choose weather-appropriate pieces for the specified conditions
- Layer-friendly pieces are ideal for variable weather
- Consider transitional pieces that work in changing weather

SELECTION RULES:
1. MANDATORY: Select exactly one 'top' and one 'bottom' from the provided list
2. OPTIONAL: Include an 'outerwear' piece if it enhances the outfit or suits the weather
3. STRICT REQUIREMENT: Only use items that exist in the provided JSON list
4. IMAGE PRECISION: Use the EXACT "image" field value from selected items
5. NO SHOES: The list contains no footwear, so don't include shoes in selections
6. JSON ONLY: Your response must be pure JSON with no additional text

Required output format (valid JSON only):
{
    "top": "exact_image_filename_from_top_item",
    "bottom": "exact_image_filename_from_bottom_item",
    "outerwear": "exact_image_filename_from_outerwear_item_or_null",
    "justification": "Short explanation of why this outfit works together (color theory, fit, occasion suitability)",
    "style_notes": "Short Professional styling tips about why this combination works (textures, proportions, versatility)",
    "other_accessories": "Specific accessory recommendations (jewelry, bags, scarves) that would complete this look",
    "weather_consideration": "How this outfit addresses the specified weather conditions"
}

CRITICAL REMINDER: Use exact "image" field values from the JSON items. For example, if selecting an item with "image": "top_1_shirt.jpg", use exactly "top_1_shirt.jpg" in your response.

Generate ONLY the JSON response now:`

// StylingPrompt renders the outfit prompt around the serialized closet items.
func StylingPrompt(closetJSON, city, weather, occasion string) string {
	return fmt.Sprintf(stylingPromptTemplate, occasion, city, weather, closetJSON)
}
